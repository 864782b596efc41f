package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/losenet/internal/core"
)

type nopLink struct {
	opts map[string]interface{}
}

func (nopLink) Receive(ctx context.Context) (core.RawFrame, error) { return core.RawFrame{}, nil }
func (nopLink) Send(frame []byte) error                            { return nil }
func (nopLink) Close() error                                       { return nil }

func TestRegistry(t *testing.T) {
	Register("test-nop", func(options map[string]interface{}) (Link, error) {
		return nopLink{opts: options}, nil
	})
	Register("test-broken", func(options map[string]interface{}) (Link, error) {
		return nil, errors.New("no such device")
	})

	l, err := Open("test-nop", map[string]interface{}{"device": "eth0"})
	require.NoError(t, err)
	assert.Equal(t, "eth0", l.(nopLink).opts["device"])

	_, err = Open("test-broken", nil)
	assert.ErrorContains(t, err, "no such device")

	_, err = Open("missing", nil)
	assert.ErrorIs(t, err, core.ErrLinkNotFound)

	assert.Contains(t, Names(), "test-nop")
	assert.Contains(t, Names(), "test-broken")
}

func TestDecodeOptions(t *testing.T) {
	type opts struct {
		Device  string        `mapstructure:"device"`
		SnapLen int           `mapstructure:"snap_len"`
		Promisc bool          `mapstructure:"promisc"`
		Timeout time.Duration `mapstructure:"timeout"`
	}

	t.Run("WeaklyTyped", func(t *testing.T) {
		var o opts
		err := DecodeOptions(map[string]interface{}{
			"device":   "eth0",
			"snap_len": "1518",
			"promisc":  "true",
			"timeout":  "250ms",
		}, &o)
		require.NoError(t, err)
		assert.Equal(t, opts{Device: "eth0", SnapLen: 1518, Promisc: true, Timeout: 250 * time.Millisecond}, o)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		var o opts
		err := DecodeOptions(map[string]interface{}{"devcie": "eth0"}, &o)
		assert.ErrorIs(t, err, core.ErrConfigInvalid)
	})

	t.Run("Nil", func(t *testing.T) {
		o := opts{Device: "keep"}
		require.NoError(t, DecodeOptions(nil, &o))
		assert.Equal(t, "keep", o.Device)
	})
}
