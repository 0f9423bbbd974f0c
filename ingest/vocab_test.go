package ingest

import (
	"testing"

	"coinwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FieldAliases(t *testing.T) {
	canon, err := Normalize(&RawEvent{MachineID: "M1", Event: "ping"}, true)
	require.NoError(t, err)
	assert.Equal(t, "M1", canon.MachineID)
	assert.Equal(t, models.EventPing, canon.Type)

	canon, err = Normalize(&RawEvent{MaquinaID: "M2", Evento: "ping"}, true)
	require.NoError(t, err)
	assert.Equal(t, "M2", canon.MachineID)

	// Primary name wins over the legacy alias.
	canon, err = Normalize(&RawEvent{MachineID: "M1", MaquinaID: "M2", Event: "ping"}, true)
	require.NoError(t, err)
	assert.Equal(t, "M1", canon.MachineID)
}

func TestNormalize_LegacyVocabulary(t *testing.T) {
	cases := map[string]string{
		"ENCENDIDO": models.EventMachineOn,
		"APAGADO":   models.EventMachineOff,
		"MONEDA":    models.EventCoinInserted,
	}
	for token, want := range cases {
		canon, err := Normalize(&RawEvent{MachineID: "M1", Event: token}, true)
		require.NoError(t, err)
		assert.Equal(t, want, canon.Type, "token %s", token)
	}
}

func TestNormalize_CanonicalPassthrough(t *testing.T) {
	for _, token := range []string{
		models.EventCoinInserted, models.EventMachineOn, models.EventMachineOff,
		models.EventGameStart, models.EventGameEnd, models.EventPing,
	} {
		canon, err := Normalize(&RawEvent{MachineID: "M1", Event: token}, true)
		require.NoError(t, err)
		assert.Equal(t, token, canon.Type)
	}
}

func TestNormalize_UnknownToken(t *testing.T) {
	canon, err := Normalize(&RawEvent{MachineID: "M1", Event: "GARBLED"}, true)
	require.NoError(t, err)
	assert.Equal(t, models.EventPing, canon.Type)

	_, err = Normalize(&RawEvent{MachineID: "M1", Event: "GARBLED"}, false)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNormalize_MissingFields(t *testing.T) {
	_, err := Normalize(&RawEvent{Event: "ping"}, true)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Normalize(&RawEvent{MachineID: "M1"}, true)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Normalize(&RawEvent{}, true)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNormalize_QuantityMerging(t *testing.T) {
	qty := 3.0

	// Top-level legacy field.
	canon, err := Normalize(&RawEvent{MachineID: "M1", Event: "MONEDA", Cantidad: &qty}, true)
	require.NoError(t, err)
	assert.Equal(t, 3.0, canon.Payload[models.PayloadQuantity])

	// Nested data field wins over top-level.
	canon, err = Normalize(&RawEvent{
		MachineID: "M1",
		Event:     "MONEDA",
		Cantidad:  &qty,
		Data:      map[string]any{"cantidad": 5.0},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 5.0, canon.Payload[models.PayloadQuantity])
	assert.NotContains(t, canon.Payload, "cantidad")
}

func TestNormalize_TokenExtraction(t *testing.T) {
	canon, err := Normalize(&RawEvent{MachineID: "M1", Event: "MONEDA", IDUnico: "abc"}, true)
	require.NoError(t, err)
	assert.Equal(t, "abc", canon.Payload[models.PayloadToken])

	canon, err = Normalize(&RawEvent{
		MachineID: "M1",
		Event:     "MONEDA",
		Data:      map[string]any{"id_unico": "xyz"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "xyz", canon.Payload[models.PayloadToken])
	assert.NotContains(t, canon.Payload, "id_unico")
}

func TestNormalize_PreservesOpaqueData(t *testing.T) {
	canon, err := Normalize(&RawEvent{
		MachineID: "M1",
		Event:     "game_end",
		Data:      map[string]any{"score": 980.0, "level": "hard"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 980.0, canon.Payload["score"])
	assert.Equal(t, "hard", canon.Payload["level"])
}
