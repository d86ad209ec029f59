package artifact

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDataURL(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	a, err := FromDataURL(payload, "upload.png")
	require.NoError(t, err)
	assert.Equal(t, "upload.png", a.Name)
	assert.Equal(t, "image/png", a.MIME)
	assert.Equal(t, raw, a.Data)
}

// Decoding then re-encoding must reproduce the same MIME type and bytes.
func TestDataURLRoundTrip(t *testing.T) {
	raw := []byte("not really a jpeg but bytes are bytes")
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	a, err := FromDataURL(payload, "a.jpg")
	require.NoError(t, err)

	b, err := FromDataURL(a.DataURL(), "b.jpg")
	require.NoError(t, err)
	assert.Equal(t, a.MIME, b.MIME)
	assert.Equal(t, a.Data, b.Data)
}

func TestFromDataURLMalformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"no comma", "data:image/png;base64"},
		{"no mime segment", "dataimage-png;base64,AAAA"},
		{"empty mime", "data:;base64,AAAA"},
		{"bad base64", "data:image/png;base64,@@@@"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromDataURL(tc.payload, "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload))
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".png", (&Artifact{MIME: "image/png"}).Ext())
	assert.Equal(t, ".jpg", (&Artifact{MIME: "image/jpeg"}).Ext())
	assert.Equal(t, ".bin", (&Artifact{MIME: "application/octet-stream"}).Ext())
}

func TestLeasePairing(t *testing.T) {
	reg := NewLeases()
	a := &Artifact{Name: "a.png", MIME: "image/png", Data: []byte{1}}

	l1 := reg.Acquire(a)
	l2 := reg.Acquire(a)
	assert.Equal(t, 2, reg.Outstanding())
	assert.NotEmpty(t, l1.URL())

	require.NoError(t, l1.Release())
	assert.Equal(t, 1, reg.Outstanding())

	// Double release is a pairing bug.
	err := l1.Release()
	require.Error(t, err)
	assert.Equal(t, 1, reg.Outstanding())

	require.NoError(t, l2.Release())
	assert.Equal(t, 0, reg.Outstanding())
}
