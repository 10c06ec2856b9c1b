package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"assay.dev/pkg/assay/internal/domain"
)

const synthLongDescription = `Synthesize oracles for every test case of a scenario.

Each test runs once unmodified and once per reachable fault. Assertions
that detect at least one fault are minimized to a smallest covering set
and written back into the test. Without --exec, runs are replayed from
the scenario's recordings.`

var (
	parallelFlag         int
	testTimeoutFlag      time.Duration
	timeoutBudgetFlag    int
	maxFaultsFlag        int
	phaseBudgetFlag      time.Duration
	fallbackFractionFlag float64
	fallbackTimeFlag     float64
	execFlag             string
)

// synthCmd represents the synth command.
var synthCmd = newSynthCmd()

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth <scenario.yaml>",
		Short: "Synthesize test oracles",
		Long:  synthLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Synthesize(commandContext(cmd), domain.SynthArgs{
				Scenario:         args[0],
				Reports:          viper.GetString(outputFlagName),
				Parallel:         viper.GetInt(parallelConfigKey),
				TestTimeout:      viper.GetDuration(testTimeoutConfigKey),
				TimeoutBudget:    viper.GetInt(timeoutBudgetConfigKey),
				MaxFaults:        viper.GetInt(maxFaultsConfigKey),
				PhaseBudget:      viper.GetDuration(phaseBudgetConfigKey),
				FallbackFraction: viper.GetFloat64(fallbackFractionConfigKey),
				FallbackTime:     viper.GetFloat64(fallbackTimeConfigKey),
				Exec:             viper.GetString(execConfigKey),
			})
		},
	}

	configureSynthFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(synthCmd)
}

func configureSynthFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of fault runs executed concurrently per test")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().DurationVarP(&testTimeoutFlag, testTimeoutFlagName, "t", viper.GetDuration(testTimeoutConfigKey), "timeout of a single test execution")
	bindFlagToConfig(cmd.Flags().Lookup(testTimeoutFlagName), testTimeoutConfigKey)

	cmd.Flags().IntVar(&timeoutBudgetFlag, timeoutBudgetFlagName, viper.GetInt(timeoutBudgetConfigKey), "skip a fault once it timed out or crashed more often than this")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutBudgetFlagName), timeoutBudgetConfigKey)

	cmd.Flags().IntVar(&maxFaultsFlag, maxFaultsFlagName, viper.GetInt(maxFaultsConfigKey), "maximum number of faults run per test (0 for all)")
	bindFlagToConfig(cmd.Flags().Lookup(maxFaultsFlagName), maxFaultsConfigKey)

	cmd.Flags().DurationVar(&phaseBudgetFlag, phaseBudgetFlagName, viper.GetDuration(phaseBudgetConfigKey), "wall-clock budget for the whole scenario (0 for none)")
	bindFlagToConfig(cmd.Flags().Lookup(phaseBudgetFlagName), phaseBudgetConfigKey)

	cmd.Flags().Float64Var(&fallbackFractionFlag, fallbackFractionFlagName, viper.GetFloat64(fallbackFractionConfigKey), "fraction of tests that must be done before the fallback time")
	bindFlagToConfig(cmd.Flags().Lookup(fallbackFractionFlagName), fallbackFractionConfigKey)

	cmd.Flags().Float64Var(&fallbackTimeFlag, fallbackTimeFlagName, viper.GetFloat64(fallbackTimeConfigKey), "fraction of the budget after which lagging runs keep complete oracles")
	bindFlagToConfig(cmd.Flags().Lookup(fallbackTimeFlagName), fallbackTimeConfigKey)

	cmd.Flags().StringVar(&execFlag, execFlagName, viper.GetString(execConfigKey), "run tests through this command instead of replaying recordings (split on spaces, no quoting)")
	bindFlagToConfig(cmd.Flags().Lookup(execFlagName), execConfigKey)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
