package asset

import (
	"errors"
	"testing"
)

func TestValidatePair(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "btc to usdc", from: "BTC", to: "USDC"},
		{name: "btc to rail", from: "BTC", to: Rail},
		{name: "same asset", from: "BTC", to: "BTC", wantErr: nil},
		{name: "unknown asset", from: "BTC", to: "ZEC", wantErr: ErrUnknownAsset},
		{name: "disabled asset", from: "PIVX", to: "BTC", wantErr: ErrAssetDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePair(tt.from, tt.to)
			if tt.from == tt.to {
				if err == nil {
					t.Error("expected error for identical pair")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		addr    string
		wantErr bool
	}{
		{
			name:   "valid signet bech32",
			symbol: "BTC",
			addr:   "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		},
		{
			name:    "evm address on btc",
			symbol:  "BTC",
			addr:    "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
			wantErr: true,
		},
		{
			name:   "valid evm address",
			symbol: "USDC",
			addr:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		},
		{
			name:    "truncated evm address",
			symbol:  "USDC",
			addr:    "0x8ba1f109551bD432",
			wantErr: true,
		},
		{
			name:   "valid rail address",
			symbol: Rail,
			addr:   "y5r3zarvary1c5xw7kxpjzsx8ba1f10955",
		},
		{
			name:    "rail address with bad prefix",
			symbol:  Rail,
			addr:    "z5r3zarvary1c5xw7kxpjzsx8ba1f10955",
			wantErr: true,
		},
		{
			name:    "empty address",
			symbol:  "BTC",
			addr:    "",
			wantErr: true,
		},
		{
			name:    "unknown asset",
			symbol:  "DOGE",
			addr:    "anything",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.symbol, tt.addr)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
