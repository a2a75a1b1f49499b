package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arkade-os/kittyd/internal/config"
	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type kittyView struct {
	Id     string  `json:"id"`
	Dna    string  `json:"dna"`
	Gender string  `json:"gender"`
	Owner  string  `json:"owner"`
	Price  *uint64 `json:"price,omitempty"`
}

func newKittyView(id domain.KittyID, kitty domain.Kitty) kittyView {
	return kittyView{
		Id:     id.String(),
		Dna:    kitty.Dna.String(),
		Gender: kitty.Gender.String(),
		Owner:  string(kitty.Owner),
		Price:  kitty.Price,
	}
}

func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func withService(
	fn func(ctx *cli.Context, svc application.Service) error,
) cli.ActionFunc {
	return withConfig(func(ctx *cli.Context, cfg *config.Config) error {
		return fn(ctx, cfg.AppService())
	})
}

// withConfig builds the kitty service from the global flags, runs fn and releases every
// store before returning.
func withConfig(fn func(ctx *cli.Context, cfg *config.Config) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg, err := config.LoadConfig(ctx)
		if err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		log.SetLevel(log.Level(cfg.LogLevel))
		log.Debugf("config: %s", cfg)

		svc := cfg.AppService()
		defer svc.Close()

		subCtx, cancel := context.WithCancel(ctx.Context)
		defer cancel()
		if err := cfg.EventPublisher().Subscribe(
			subCtx, domain.KittyTopic, logEvent,
		); err != nil {
			return err
		}

		return fn(ctx, cfg)
	}
}

func logEvent(event domain.Event) {
	fields := log.Fields{"type": event.GetType().String()}
	switch e := event.(type) {
	case domain.KittyCreated:
		fields["kitty_id"] = e.Id.String()
		fields["owner"] = e.Owner
	case domain.PriceSet:
		fields["kitty_id"] = e.Id.String()
		fields["owner"] = e.Owner
		if e.Price != nil {
			fields["price"] = *e.Price
		}
	case domain.KittyTransferred:
		fields["kitty_id"] = e.Id.String()
		fields["from"] = e.From
		fields["to"] = e.To
	case domain.KittyBought:
		fields["kitty_id"] = e.Id.String()
		fields["buyer"] = e.Buyer
		fields["seller"] = e.Seller
		fields["price"] = e.Price
	}
	log.WithFields(fields).Info("event")
}
