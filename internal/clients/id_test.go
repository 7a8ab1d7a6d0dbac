package clients

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientID(t *testing.T) {
	tests := []struct {
		in      string
		want    ClientID
		wantErr bool
	}{
		{in: "1700000000000", want: 1700000000000},
		{in: " 42 ", want: 42},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "4.2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := ParseClientID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClientID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestClientIDUnmarshalJSON(t *testing.T) {
	var body struct {
		A ClientID `json:"a"`
		B ClientID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "43"}`), &body))
	assert.Equal(t, ClientID(42), body.A)
	assert.Equal(t, ClientID(43), body.B)

	var id ClientID
	assert.ErrorIs(t, json.Unmarshal([]byte(`"x"`), &id), ErrInvalidClientID)
	assert.ErrorIs(t, json.Unmarshal([]byte(`true`), &id), ErrInvalidClientID)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1.5`), &id), ErrInvalidClientID)

	out, err := json.Marshal(ClientID(7))
	require.NoError(t, err)
	assert.Equal(t, "7", string(out))
}
