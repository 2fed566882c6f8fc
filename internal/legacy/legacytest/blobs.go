package legacytest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

// ColorArchive returns a keyed archive of a UIColor with the given components
func ColorArchive(t testing.TB, r, g, b, a float64) []byte {
	t.Helper()
	archive := map[string]interface{}{
		"$archiver": "NSKeyedArchiver",
		"$version":  100000,
		"$top":      map[string]interface{}{"root": plist.UID(1)},
		"$objects": []interface{}{
			"$null",
			map[string]interface{}{
				"UIRed": r, "UIGreen": g, "UIBlue": b, "UIAlpha": a,
				"$class": plist.UID(2),
			},
			map[string]interface{}{"$classname": "UIColor", "$classes": []interface{}{"UIColor", "NSObject"}},
		},
	}
	data, err := plist.Marshal(archive, plist.BinaryFormat)
	require.NoError(t, err)
	return data
}

// PhotoList returns a binary property list of urls
func PhotoList(t testing.TB, urls ...string) []byte {
	t.Helper()
	if urls == nil {
		urls = []string{}
	}
	data, err := plist.Marshal(urls, plist.BinaryFormat)
	require.NoError(t, err)
	return data
}

// CorruptColor is a blob with a property list magic and no valid body
var CorruptColor = []byte("bplist00\x01\x02garbage")

// MalformedPhotos is a blob that no array decoder accepts
var MalformedPhotos = []byte("bplist00{not an array")
