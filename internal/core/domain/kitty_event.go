package domain

const KittyTopic = "kitty"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeKittyCreated
	EventTypePriceSet
	EventTypeKittyTransferred
	EventTypeKittyBought
)

func (t EventType) String() string {
	switch t {
	case EventTypeKittyCreated:
		return "KittyCreated"
	case EventTypePriceSet:
		return "PriceSet"
	case EventTypeKittyTransferred:
		return "KittyTransferred"
	case EventTypeKittyBought:
		return "KittyBought"
	default:
		return "Undefined"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type KittyEvent struct {
	Id   KittyID
	Type EventType
}

func (e KittyEvent) GetTopic() string   { return KittyTopic }
func (e KittyEvent) GetType() EventType { return e.Type }

type KittyCreated struct {
	KittyEvent
	Owner Account
}

// PriceSet is emitted both when a kitty is listed and, with a nil price, when it is delisted.
type PriceSet struct {
	KittyEvent
	Owner Account
	Price *Amount
}

type KittyTransferred struct {
	KittyEvent
	From Account
	To   Account
}

type KittyBought struct {
	KittyEvent
	Buyer  Account
	Seller Account
	Price  Amount
}

func NewKittyCreated(id KittyID, owner Account) KittyCreated {
	return KittyCreated{
		KittyEvent: KittyEvent{Id: id, Type: EventTypeKittyCreated},
		Owner:      owner,
	}
}

func NewPriceSet(id KittyID, owner Account, price *Amount) PriceSet {
	return PriceSet{
		KittyEvent: KittyEvent{Id: id, Type: EventTypePriceSet},
		Owner:      owner,
		Price:      price,
	}
}

func NewKittyTransferred(id KittyID, from, to Account) KittyTransferred {
	return KittyTransferred{
		KittyEvent: KittyEvent{Id: id, Type: EventTypeKittyTransferred},
		From:       from,
		To:         to,
	}
}

func NewKittyBought(id KittyID, buyer, seller Account, price Amount) KittyBought {
	return KittyBought{
		KittyEvent: KittyEvent{Id: id, Type: EventTypeKittyBought},
		Buyer:      buyer,
		Seller:     seller,
		Price:      price,
	}
}
