package fields

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "visitorname", Normalize("Visitor_Name"))
	assert.Equal(t, "visitorname", Normalize("visitor-name"))
	assert.Equal(t, "webertest", Normalize("Weber's test"))
	assert.Equal(t, "", Normalize("__"))
}

func TestFindKeyExactBeatsNormalized(t *testing.T) {
	// "visitor name" normalizes to a candidate and comes first in the record,
	// but the exact key must still win.
	rec := NewRecord(
		"visitor name", "normalized",
		"visitor_name", "exact",
	)

	key, ok := FindKey(rec, []string{"Visitor_Name", "visitor_name"})
	require.True(t, ok)
	assert.Equal(t, "visitor_name", key)

	v, ok := PickFirst(rec, []string{"Visitor_Name", "visitor_name"})
	require.True(t, ok)
	assert.Equal(t, "exact", v)
}

func TestFindKeyCandidateOrderForExactMatches(t *testing.T) {
	rec := NewRecord("name", "second", "Visitor_Name", "first")

	key, ok := FindKey(rec, []string{"Visitor_Name", "name"})
	require.True(t, ok)
	assert.Equal(t, "Visitor_Name", key)
}

func TestFindKeyNormalizedUsesRecordOrder(t *testing.T) {
	rec := NewRecord(
		"Phone_No", "x",
		"PHONE", "111",
		"phone ", "222",
	)

	for i := 0; i < 3; i++ {
		key, ok := FindKey(rec, []string{"Phone", "phone", "mobile"})
		require.True(t, ok)
		assert.Equal(t, "PHONE", key)
	}
}

func TestFindKeyMissing(t *testing.T) {
	rec := NewRecord("Center", "Pune")

	_, ok := FindKey(rec, []string{"Phone", "mobile"})
	assert.False(t, ok)

	_, ok = FindKey(nil, []string{"Phone"})
	assert.False(t, ok)
}

func TestPickFirstEmptyStringIsAbsent(t *testing.T) {
	rec := NewRecord("Remarks", "", "notes", "ignored")

	_, ok := PickFirst(rec, []string{"Remarks", "notes"})
	assert.False(t, ok, "empty exact match should not fall through to later candidates")
}

func TestPickFirstKeepsNull(t *testing.T) {
	rec := NewRecord("Email", nil)

	v, ok := PickFirst(rec, []string{"Email"})
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMapSourceIsDeterministic(t *testing.T) {
	src := MapSource(map[string]any{"b_phone": 2, "B-Phone": 1})

	key, ok := FindKey(src, []string{"bphone"})
	require.True(t, ok)
	assert.Equal(t, "B-Phone", key)
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":"x","m":{"k":true},"n":null}`), &rec))

	if diff := cmp.Diff([]string{"z", "a", "m", "n"}, rec.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, json.Number("1"), rec.Get("z"))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":1,"a":"x","m":{"k":true},"n":null}`, string(out))
	assert.True(t, strings.HasPrefix(string(out), `{"z":1,"a":"x"`))
}

func TestRecordRejectsNonObject(t *testing.T) {
	var rec Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &rec))
}

func TestDecodeRecords(t *testing.T) {
	arr, err := DecodeRecords(strings.NewReader(`[{"Visitor_Name":"Asha"},{"name":"Kiran"}]`))
	require.NoError(t, err)
	require.Len(t, arr, 2)
	assert.Equal(t, "Kiran", arr[1].Get("name"))

	stream, err := DecodeRecords(strings.NewReader("{\"a\":1}\n{\"b\":2}\n"))
	require.NoError(t, err)
	require.Len(t, stream, 2)
	assert.Equal(t, []string{"b"}, stream[1].Keys())

	empty, err := DecodeRecords(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSectionsCatalog(t *testing.T) {
	var titles []string
	for _, s := range Sections {
		titles = append(titles, s.Title)
	}
	want := []string{"Visitor Information", "Clinical Details", "Hearing Aid Sale"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Visitor Name", Sections[0].Fields[0].Label)
	assert.Equal(t, "Payment Done", Sections[2].Fields[4].Label)
}

func TestIsPhone(t *testing.T) {
	assert.True(t, FieldDef{Label: "Phone"}.IsPhone())
	assert.True(t, FieldDef{Label: "Contact", Keys: []string{"Mobile_No"}}.IsPhone())
	assert.False(t, FieldDef{Label: "Email", Keys: []string{"email"}}.IsPhone())
}
