package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"riven-sniper/internal/app"
)

var (
	simulateWeapon   string
	simulatePrice    float64
	simulateBaseline float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条低价挂单并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 || simulateBaseline <= 0 {
			return errors.New("--price 与 --baseline 必须大于 0")
		}

		opts := app.SimulateOptions{
			Weapon:   simulateWeapon,
			Price:    simulatePrice,
			Baseline: simulateBaseline,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateWeapon, "weapon", "", "Weapon name for the synthetic listing")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "挂单价格（白金）")
	simulateCmd.Flags().Float64Var(&simulateBaseline, "baseline", 0, "基准公允价（白金）")
}
