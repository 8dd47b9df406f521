package accesslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct{}

func (fakeHasher) HashString(s string) string { return "x" + s }

func TestParseIPPolicy(t *testing.T) {
	for in, want := range map[string]IPPolicy{"": IPStore, "store": IPStore, " MASK ": IPMask, "hash": IPHash, "drop": IPDrop} {
		got, err := ParseIPPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseIPPolicy("scramble")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	rec := Record{RemoteAddr: "192.168.1.77", Request: "GET / HTTP/1.1"}
	v6 := Record{RemoteAddr: "2001:db8:1:2:3:4:5:6"}
	name := Record{RemoteAddr: "proxy.internal"}

	assert.Equal(t, rec, Normalize(rec, IPStore, nil))
	assert.Equal(t, rec, Normalize(rec, "", nil))

	assert.Equal(t, "192.168.1.0", Normalize(rec, IPMask, nil).RemoteAddr)
	assert.Equal(t, "2001:db8:1:2::", Normalize(v6, IPMask, nil).RemoteAddr)
	assert.Equal(t, "", Normalize(name, IPMask, nil).RemoteAddr)

	assert.Equal(t, "h:x192.168.1.77", Normalize(rec, IPHash, fakeHasher{}).RemoteAddr)
	assert.Equal(t, "h:xproxy.internal", Normalize(name, IPHash, fakeHasher{}).RemoteAddr)
	assert.Equal(t, "", Normalize(rec, IPHash, nil).RemoteAddr)
	assert.Equal(t, "", Normalize(name, IPHash, nil).RemoteAddr)
	assert.Equal(t, "h:x192.168.1.77", Normalize(Record{RemoteAddr: "::ffff:192.168.1.77"}, IPHash, fakeHasher{}).RemoteAddr)
	assert.Equal(t, "192.168.1.0", Normalize(Record{RemoteAddr: "::ffff:192.168.1.77"}, IPMask, nil).RemoteAddr)
	assert.Equal(t, "fe80::", Normalize(Record{RemoteAddr: "fe80::1%eth0"}, IPMask, nil).RemoteAddr)
	assert.Equal(t, "", Normalize(Record{RemoteAddr: "-"}, IPMask, nil).RemoteAddr)

	dropped := Normalize(rec, IPDrop, nil)
	assert.Equal(t, "", dropped.RemoteAddr)
	assert.Equal(t, rec.Request, dropped.Request)
}
