package main

import (
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	callerFlagName  = "caller"
	toFlagName      = "to"
	idFlagName      = "id"
	priceFlagName   = "price"
	bidFlagName     = "bid"
	parent1FlagName = "parent1"
	parent2FlagName = "parent2"
	accountFlagName = "account"
	amountFlagName  = "amount"
)

var (
	callerFlag = &cli.StringFlag{
		Name:  callerFlagName,
		Usage: "the account submitting the operation, defaults to KITTYD_CALLER",
	}
	toFlag = &cli.StringFlag{
		Name:     toFlagName,
		Usage:    "the account receiving the kitty",
		Required: true,
	}
	kittyIdFlag = &cli.StringFlag{
		Name:     idFlagName,
		Usage:    "the hex id of the kitty",
		Required: true,
	}
	priceFlag = &cli.Uint64Flag{
		Name:     priceFlagName,
		Usage:    "the ask price of the kitty",
		Required: true,
	}
	bidFlag = &cli.Uint64Flag{
		Name:     bidFlagName,
		Usage:    "the maximum price the buyer is willing to pay",
		Required: true,
	}
	parent1Flag = &cli.StringFlag{
		Name:     parent1FlagName,
		Usage:    "the hex id of the first parent",
		Required: true,
	}
	parent2Flag = &cli.StringFlag{
		Name:     parent2FlagName,
		Usage:    "the hex id of the second parent",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:     accountFlagName,
		Usage:    "the account to query",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     amountFlagName,
		Usage:    "the amount to deposit",
		Required: true,
	}
)

func getCaller(ctx *cli.Context) (domain.Account, error) {
	caller := ctx.String(callerFlagName)
	if caller == "" {
		caller = viper.GetString(callerFlagName)
	}
	if caller == "" {
		return "", fmt.Errorf("missing caller, use --%s or KITTYD_CALLER", callerFlagName)
	}
	return domain.Account(caller), nil
}

func getKittyId(ctx *cli.Context, flagName string) (domain.KittyID, error) {
	id, err := domain.ParseKittyID(ctx.String(flagName))
	if err != nil {
		return domain.KittyID{}, fmt.Errorf("invalid --%s: %s", flagName, err)
	}
	return id, nil
}
