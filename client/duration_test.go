package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "", want: 0},
		{input: "PT0S", want: 0},
		{input: "P0D", want: 0},
		{input: "PT45S", want: 45},
		{input: "PT4M13S", want: 253},
		{input: "PT1H2M3S", want: 3723},
		{input: "PT2H", want: 7200},
		{input: "P1DT1S", want: 86401},
		{input: "P1W", want: 604800},
		{input: "P", wantErr: true},
		{input: "PT", wantErr: true},
		{input: "1H", wantErr: true},
		{input: "PT1.5S", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseISODuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
