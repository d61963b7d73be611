package fees

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

type withdrawalFile struct {
	WithdrawalFees []withdrawalRow `yaml:"withdrawal_fees"`
}

type withdrawalRow struct {
	Currency string `yaml:"currency"`
	Network  string `yaml:"network"`
	Fee      string `yaml:"fee"`
}

// LoadWithdrawalTable reads the withdrawal fee YAML file at path.
func LoadWithdrawalTable(path string) ([]models.WithdrawalFeeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read withdrawal fee table: %w", err)
	}
	return ParseWithdrawalTable(data)
}

// ParseWithdrawalTable decodes a withdrawal fee table document.
func ParseWithdrawalTable(data []byte) ([]models.WithdrawalFeeEntry, error) {
	var file withdrawalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse withdrawal fee table: %w", err)
	}

	entries := make([]models.WithdrawalFeeEntry, 0, len(file.WithdrawalFees))
	for i, row := range file.WithdrawalFees {
		fee, err := decimal.NewFromString(row.Fee)
		if err != nil {
			return nil, fmt.Errorf("withdrawal fee row %d (%s/%s): invalid fee %q: %w", i, row.Currency, row.Network, row.Fee, err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("withdrawal fee row %d (%s/%s): negative fee %s", i, row.Currency, row.Network, row.Fee)
		}
		entries = append(entries, models.WithdrawalFeeEntry{
			Currency: row.Currency,
			Network:  row.Network,
			Fee:      fee,
		})
	}
	return entries, nil
}
