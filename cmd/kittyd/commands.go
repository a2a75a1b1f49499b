package main

import (
	"github.com/arkade-os/kittyd/internal/config"
	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	genesisCmd = &cli.Command{
		Name:   "genesis",
		Usage:  "Load the genesis file into an empty registry",
		Action: withConfig(genesisAction),
	}
	createCmd = &cli.Command{
		Name:   "create",
		Usage:  "Mint a new kitty with random dna",
		Flags:  []cli.Flag{callerFlag},
		Action: withService(createAction),
	}
	setPriceCmd = &cli.Command{
		Name:   "set-price",
		Usage:  "List a kitty for sale",
		Flags:  []cli.Flag{callerFlag, kittyIdFlag, priceFlag},
		Action: withService(setPriceAction),
	}
	unlistCmd = &cli.Command{
		Name:   "unlist",
		Usage:  "Remove a kitty from sale",
		Flags:  []cli.Flag{callerFlag, kittyIdFlag},
		Action: withService(unlistAction),
	}
	transferCmd = &cli.Command{
		Name:   "transfer",
		Usage:  "Give a kitty to another account",
		Flags:  []cli.Flag{callerFlag, toFlag, kittyIdFlag},
		Action: withService(transferAction),
	}
	buyCmd = &cli.Command{
		Name:   "buy",
		Usage:  "Buy a kitty listed for sale",
		Flags:  []cli.Flag{callerFlag, kittyIdFlag, bidFlag},
		Action: withService(buyAction),
	}
	breedCmd = &cli.Command{
		Name:   "breed",
		Usage:  "Breed two owned kitties into a new one",
		Flags:  []cli.Flag{callerFlag, parent1Flag, parent2Flag},
		Action: withService(breedAction),
	}
	kittyCmd = &cli.Command{
		Name:   "kitty",
		Usage:  "Get a kitty by id",
		Flags:  []cli.Flag{kittyIdFlag},
		Action: withService(kittyAction),
	}
	kittiesCmd = &cli.Command{
		Name:   "kitties",
		Usage:  "List the kitties owned by an account",
		Flags:  []cli.Flag{accountFlag},
		Action: withService(kittiesAction),
	}
	countCmd = &cli.Command{
		Name:   "count",
		Usage:  "Get the total number of kitties",
		Action: withService(countAction),
	}
	balanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "Get the free balance of an account",
		Flags:  []cli.Flag{accountFlag},
		Action: withService(balanceAction),
	}
	fundCmd = &cli.Command{
		Name:   "fund",
		Usage:  "Deposit funds to an account",
		Flags:  []cli.Flag{accountFlag, amountFlag},
		Action: withService(fundAction),
	}
)

func genesisAction(ctx *cli.Context, cfg *config.Config) error {
	genesis, err := cfg.Genesis()
	if err != nil {
		return err
	}
	report, svcErr := cfg.AppService().LoadGenesis(ctx.Context, *genesis)
	if svcErr != nil {
		return svcErr
	}

	minted := make([]string, 0, len(report.Minted))
	for _, id := range report.Minted {
		minted = append(minted, id.String())
	}
	return printJSON(map[string]any{
		"minted":   minted,
		"skipped":  report.Skipped,
		"balances": report.Balances,
	})
}

func createAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, svcErr := svc.CreateKitty(ctx.Context, caller)
	if svcErr != nil {
		return svcErr
	}
	return printJSON(map[string]string{"id": id.String()})
}

func setPriceAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := getKittyId(ctx, idFlagName)
	if err != nil {
		return err
	}
	if svcErr := svc.SetPrice(ctx.Context, caller, id, ctx.Uint64(priceFlagName)); svcErr != nil {
		return svcErr
	}
	return nil
}

func unlistAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := getKittyId(ctx, idFlagName)
	if err != nil {
		return err
	}
	if svcErr := svc.Unlist(ctx.Context, caller, id); svcErr != nil {
		return svcErr
	}
	return nil
}

func transferAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := getKittyId(ctx, idFlagName)
	if err != nil {
		return err
	}
	to := ctx.String(toFlagName)
	if svcErr := svc.Transfer(ctx.Context, caller, domain.Account(to), id); svcErr != nil {
		return svcErr
	}
	return nil
}

func buyAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := getKittyId(ctx, idFlagName)
	if err != nil {
		return err
	}
	if svcErr := svc.BuyKitty(ctx.Context, caller, id, ctx.Uint64(bidFlagName)); svcErr != nil {
		return svcErr
	}
	return nil
}

func breedAction(ctx *cli.Context, svc application.Service) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	parent1, err := getKittyId(ctx, parent1FlagName)
	if err != nil {
		return err
	}
	parent2, err := getKittyId(ctx, parent2FlagName)
	if err != nil {
		return err
	}
	id, svcErr := svc.BreedKitty(ctx.Context, caller, parent1, parent2)
	if svcErr != nil {
		return svcErr
	}
	return printJSON(map[string]string{"id": id.String()})
}

func kittyAction(ctx *cli.Context, svc application.Service) error {
	id, err := getKittyId(ctx, idFlagName)
	if err != nil {
		return err
	}
	kitty, svcErr := svc.GetKitty(ctx.Context, id)
	if svcErr != nil {
		return svcErr
	}
	return printJSON(newKittyView(id, *kitty))
}

func kittiesAction(ctx *cli.Context, svc application.Service) error {
	owner := domain.Account(ctx.String(accountFlagName))
	kitties, svcErr := svc.GetKittiesByOwner(ctx.Context, owner)
	if svcErr != nil {
		return svcErr
	}
	views := make([]kittyView, 0, len(kitties))
	for _, k := range kitties {
		views = append(views, newKittyView(k.Id, k.Kitty))
	}
	return printJSON(views)
}

func countAction(ctx *cli.Context, svc application.Service) error {
	count, svcErr := svc.GetKittyCount(ctx.Context)
	if svcErr != nil {
		return svcErr
	}
	return printJSON(map[string]uint64{"count": count})
}

func balanceAction(ctx *cli.Context, svc application.Service) error {
	balance, svcErr := svc.GetBalance(ctx.Context, domain.Account(ctx.String(accountFlagName)))
	if svcErr != nil {
		return svcErr
	}
	return printJSON(map[string]uint64{"balance": balance})
}

func fundAction(ctx *cli.Context, svc application.Service) error {
	account := domain.Account(ctx.String(accountFlagName))
	if svcErr := svc.Deposit(ctx.Context, account, ctx.Uint64(amountFlagName)); svcErr != nil {
		return svcErr
	}
	balance, svcErr := svc.GetBalance(ctx.Context, account)
	if svcErr != nil {
		return svcErr
	}
	return printJSON(map[string]uint64{"balance": balance})
}
