package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	var typed Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

// IsConsistencyError reports whether err signals a broken registry invariant rather than a
// rejected request.
func IsConsistencyError(err error) bool {
	var typed Error
	if !errors.As(err, &typed) {
		return false
	}
	switch typed.GrpcCode() {
	case grpccodes.Internal, grpccodes.DataLoss:
		return true
	default:
		return false
	}
}

type KittyMetadata struct {
	KittyID string `json:"kitty_id"`
}

type OwnershipMetadata struct {
	KittyID string `json:"kitty_id"`
	Caller  string `json:"caller"`
	Owner   string `json:"owner"`
}

type AccountMetadata struct {
	Account string `json:"account"`
}

type BidMetadata struct {
	KittyID  string `json:"kitty_id"`
	BidPrice uint64 `json:"bid_price"`
	AskPrice uint64 `json:"ask_price"`
}

type BalanceMetadata struct {
	Account  string `json:"account"`
	Required uint64 `json:"required"`
	Free     uint64 `json:"free"`
}

type CapacityMetadata struct {
	Account  string `json:"account"`
	Owned    int    `json:"owned"`
	MaxOwned uint32 `json:"max_owned"`
}

type CountMetadata struct {
	Count uint64 `json:"count"`
}

type GenesisMetadata struct {
	Count   uint64 `json:"count"`
	Account string `json:"account,omitempty"`
}

type InconsistencyMetadata struct {
	KittyID string `json:"kitty_id"`
	Account string `json:"account"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var KITTY_NOT_FOUND = Code[KittyMetadata]{1, "KITTY_NOT_FOUND", grpccodes.NotFound}
var NOT_KITTY_OWNER = Code[OwnershipMetadata]{2, "NOT_KITTY_OWNER", grpccodes.PermissionDenied}
var TRANSFER_TO_SELF = Code[AccountMetadata]{3, "TRANSFER_TO_SELF", grpccodes.InvalidArgument}

var BUYER_IS_KITTY_OWNER = Code[OwnershipMetadata]{
	4,
	"BUYER_IS_KITTY_OWNER",
	grpccodes.InvalidArgument,
}

var KITTY_NOT_FOR_SALE = Code[KittyMetadata]{
	5,
	"KITTY_NOT_FOR_SALE",
	grpccodes.FailedPrecondition,
}

var KITTY_BID_PRICE_TOO_LOW = Code[BidMetadata]{
	6,
	"KITTY_BID_PRICE_TOO_LOW",
	grpccodes.InvalidArgument,
}

var NOT_ENOUGH_BALANCE = Code[BalanceMetadata]{
	7,
	"NOT_ENOUGH_BALANCE",
	grpccodes.FailedPrecondition,
}

var EXCEED_MAX_KITTY_OWNED = Code[CapacityMetadata]{
	8,
	"EXCEED_MAX_KITTY_OWNED",
	grpccodes.ResourceExhausted,
}

var KITTY_COUNT_OVERFLOW = Code[CountMetadata]{
	9,
	"KITTY_COUNT_OVERFLOW",
	grpccodes.ResourceExhausted,
}

var KITTY_ALREADY_EXISTS = Code[KittyMetadata]{
	10,
	"KITTY_ALREADY_EXISTS",
	grpccodes.AlreadyExists,
}

var REGISTRY_INCONSISTENT = Code[InconsistencyMetadata]{
	11,
	"REGISTRY_INCONSISTENT",
	grpccodes.DataLoss,
}

var REGISTRY_NOT_EMPTY = Code[GenesisMetadata]{
	12,
	"REGISTRY_NOT_EMPTY",
	grpccodes.FailedPrecondition,
}
