package layer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
)

func TestSelectionPayloadShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		sel  Selection
		want string
	}{
		{"no adversary", Select(""), `{"index":"all"}`},
		{"whitespace adversary", Select("   "), `{"index":"all"}`},
		{"adversary", Select("42"), `{"index":"adversary","adversary_id":"42"}`},
		{"legacy all", SelectLegacy(""), `{"all":true}`},
		{"legacy with adversary", SelectLegacy("42"), `{"index":"adversary","adversary_id":"42"}`},
		{"zero value", Selection{}, `{"index":"all"}`},
	}
	for _, tc := range cases {
		got, err := json.Marshal(tc.sel)
		require.NoError(t, err, tc.name)
		require.JSONEq(t, tc.want, string(got), tc.name)
		require.Equal(t, tc.want, string(got), tc.name)
	}
}

func TestSelectionUnmarshal(t *testing.T) {
	t.Parallel()

	var sel Selection
	require.NoError(t, json.Unmarshal([]byte(`{"all":true}`), &sel))
	require.True(t, sel.Legacy)
	require.True(t, sel.All())

	require.NoError(t, json.Unmarshal([]byte(`{"index":"adversary","adversary_id":"abc"}`), &sel))
	require.False(t, sel.All())
	require.Equal(t, "abc", sel.AdversaryID)
	require.Equal(t, "adversary abc", sel.String())
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"name":`))
	require.True(t, errors.Is(err, errors.NotValid))

	_, err = Parse([]byte("  "))
	require.True(t, errors.Is(err, errors.NotValid))
}

func TestPrettyUsesTwoSpaceIndentAndKeepsOrder(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`{"z":1,"a":{"b":[1,2]}}`))
	require.NoError(t, err)
	pretty, err := doc.Pretty()
	require.NoError(t, err)
	want := "{\n  \"z\": 1,\n  \"a\": {\n    \"b\": [\n      1,\n      2\n    ]\n  }\n}"
	require.Equal(t, want, string(pretty))
}

func TestDataURIRoundTrip(t *testing.T) {
	t.Parallel()

	nav := Boilerplate("All-Abilities", "full set of techniques available")
	nav.AddTechnique("T1003")
	nav.AddTechnique("T1059.001")
	nav.Techniques[1].Comment = "100% & more: 'quoted' (x) ü"
	doc, err := nav.Document()
	require.NoError(t, err)

	uri, err := doc.DataURI()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, DataURIPrefix))
	require.NotContains(t, strings.TrimPrefix(uri, DataURIPrefix), " ")

	back, err := DecodeDataURI(uri)
	require.NoError(t, err)

	var want, got any
	require.NoError(t, json.Unmarshal(doc.Raw(), &want))
	require.NoError(t, json.Unmarshal(back.Raw(), &got))
	require.Equal(t, want, got)
}

func TestDownloadSavesPrettyDocument(t *testing.T) {
	t.Parallel()
	doc, err := Parse([]byte(`{"name":"50% ü","techniques":[{"techniqueID":"T1003","score":1}]}`))
	require.NoError(t, err)

	saved, err := doc.Download()
	require.NoError(t, err)
	pretty, err := doc.Pretty()
	require.NoError(t, err)
	require.Equal(t, string(pretty), string(saved))
	require.JSONEq(t, string(doc.Raw()), string(saved))

	_, err = Document{}.Download()
	require.True(t, errors.Is(err, errors.NotValid))
}

func TestDecodeDataURIBase64(t *testing.T) {
	t.Parallel()

	doc, err := DecodeDataURI("data:application/json;base64,eyJhIjoxfQ==")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(doc.Raw()))

	_, err = DecodeDataURI("http://example.com")
	require.True(t, errors.Is(err, errors.NotValid))
}

func TestEncodeURIComponentMatchesBrowser(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a%20b%2Fc%3F%3D%26-_.!~*'()", encodeURIComponent([]byte("a b/c?=&-_.!~*'()")))
	require.Equal(t, "%C3%BC", encodeURIComponent([]byte("ü")))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	nav := Boilerplate("Adversary", "scoped")
	nav.AddTechnique("T1")
	doc, err := nav.Document()
	require.NoError(t, err)
	s := doc.Summary()
	require.Equal(t, Summary{Name: "Adversary", Version: "2.2", Domain: "mitre-enterprise", Techniques: 1}, s)

	arr, err := Parse([]byte(`[1,2,3]`))
	require.NoError(t, err)
	require.Equal(t, Summary{}, arr.Summary())
}
