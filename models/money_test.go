package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromMajor(t *testing.T) {
	tests := []struct {
		in      float64
		want    Money
		wantErr bool
	}{
		{in: 200000, want: Naira(200000)},
		{in: 0.1, want: 10},
		{in: 1999.99, want: 199999},
		{in: 0, wantErr: true},
		{in: -5, wantErr: true},
		{in: 1.005, wantErr: true},
		{in: 1_000_000_000_000, want: MaxAmount},
		{in: 1_000_000_000_000.01, wantErr: true},
		{in: 1.8446744073709552e17, wantErr: true},
		{in: 1e30, wantErr: true},
	}
	for _, tt := range tests {
		got, err := NewMoneyFromMajor(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAmount, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestMoneyJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: 250050})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":2500.5}`, string(out))

	var back struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":5000000}`), &back))
	assert.Equal(t, Naira(5000000), back.Amount)
	assert.Equal(t, "₦5000000.00", back.Amount.String())

	assert.Error(t, json.Unmarshal([]byte(`{"amount":1e30}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"amount":-92233720368547758.09}`), &back))
	assert.Equal(t, Naira(5000000), back.Amount, "a rejected value leaves the old one")
}
