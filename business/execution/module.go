// Package execution implements the settlement bounded context: sequence
// management, submission, and confirmation tracking.
package execution

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apexarb/flasharb/business/execution/app"
	executionDI "github.com/apexarb/flasharb/business/execution/di"
	"github.com/apexarb/flasharb/business/execution/infra/evm"
	"github.com/apexarb/flasharb/business/execution/infra/sim"
	arbitrageDI "github.com/apexarb/flasharb/business/arbitrage/di"
	marketDI "github.com/apexarb/flasharb/business/market/di"
	networkDI "github.com/apexarb/flasharb/business/network/di"
	"github.com/apexarb/flasharb/internal/config"
	"github.com/apexarb/flasharb/internal/di"
	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/monolith"
	"github.com/apexarb/flasharb/internal/store"
)

// signingKeyEnv names the env var carrying the operating account's hex
// key. It never passes through the config file.
const signingKeyEnv = "FLASHARB_SIGNING_KEY"

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Submitter, func(sr di.ServiceRegistry) app.Submitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Execution.DryRun {
			return sim.NewSimulator(marketDI.GetMarketService(sr), log)
		}

		signer, err := evm.NewLocalSigner(os.Getenv(signingKeyEnv))
		if err != nil {
			panic("failed to load signing key from " + signingKeyEnv + ": " + err.Error())
		}
		if signer.Address() != cfg.Chain.AccountAddress() {
			panic("signing key does not match chain.account")
		}

		submitter, err := evm.NewSubmitter(evm.SubmitterConfig{
			ChainID:  cfg.Chain.ChainID,
			Vault:    cfg.Chain.VaultAddress(),
			GasLimit: cfg.Chain.GasLimit,
		}, networkDI.GetNetworkService(sr), marketDI.GetMarketService(sr), signer, log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return submitter
	})

	di.RegisterToken(c, executionDI.SequenceSyncer, func(sr di.ServiceRegistry) app.SequenceSyncer {
		// Both submission channels also report the account's next
		// sequence, so the syncer is whichever one is active.
		return executionDI.GetSubmitter(sr).(app.SequenceSyncer)
	})

	di.RegisterToken(c, executionDI.SequenceManager, func(sr di.ServiceRegistry) *app.SequenceManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewSequenceManager(
			cfg.Chain.AccountAddress(),
			executionDI.GetSequenceSyncer(sr),
			log,
		)
	})

	di.RegisterToken(c, executionDI.Coordinator, func(sr di.ServiceRegistry) *app.Coordinator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		routers := make(map[string]common.Address, len(cfg.Venues))
		for _, v := range cfg.Venues {
			routers[v.Name] = common.HexToAddress(v.Router)
		}

		coordinator, err := app.NewCoordinator(app.CoordinatorConfig{
			Account:          cfg.Chain.AccountAddress(),
			Beneficiary:      cfg.Chain.BeneficiaryAddress(),
			Routers:          routers,
			PremiumBps:       cfg.Arbitrage.CreditFeeBps,
			SlippageBps:      cfg.Arbitrage.SlippageBps,
			DeadlineWindow:   cfg.Execution.DeadlineWindow,
			ConfirmTimeout:   cfg.Execution.ConfirmTimeout,
			SubmitRetries:    cfg.Execution.SubmitRetries,
			MinNativeBalance: cfg.Execution.MinNativeBalanceDecimal(),
		},
			executionDI.GetSequenceManager(sr),
			executionDI.GetSubmitter(sr),
			marketDI.GetMarketService(sr),
			networkDI.GetNetworkService(sr),
			log,
		)
		if err != nil {
			panic("failed to create coordinator: " + err.Error())
		}
		return coordinator
	})

	di.RegisterToken(c, executionDI.Runner, func(sr di.ServiceRegistry) *app.Runner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		st := sr.Get("store").(*store.Store)

		return app.NewRunner(app.RunnerConfig{
			ScanInterval:  cfg.Arbitrage.ScanInterval,
			GuardAccount:  cfg.Chain.Account,
			GuardHolder:   app.InstanceHolder(),
			GuardValidity: cfg.Execution.GuardValidity,
		},
			arbitrageDI.GetArbitrageService(sr),
			executionDI.GetCoordinator(sr),
			st,
			log,
		)
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	executionDI.GetCoordinator(mono.Services())
	mono.Logger().Info(ctx, "execution module started",
		"dry_run", mono.Config().Execution.DryRun,
		"confirm_timeout", mono.Config().Execution.ConfirmTimeout.String(),
	)
	return nil
}
