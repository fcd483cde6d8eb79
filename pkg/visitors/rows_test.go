package visitors

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/format"
)

func decode(t *testing.T, raw string) fields.Record {
	t.Helper()
	var r fields.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestDetailPhoneGetsTelTarget(t *testing.T) {
	row := decode(t, `{"Visitor_Name":"Asha","phone":"9876543210"}`)

	got := Detail(row)
	want := []DetailSection{
		{Title: "Visitor Information", Fields: []DetailField{
			{Label: "Visitor Name", Value: "Asha"},
			{Label: "Phone", Value: "9876543210", Tel: "tel:9876543210"},
		}},
		{Title: "Clinical Details"},
		{Title: "Hearing Aid Sale"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detail mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailSkipsEmptyButKeepsNull(t *testing.T) {
	row := decode(t, `{"Visitor_Name":"Kiran","Email":"","Remarks":null,"Payment_Done":true,"patient-age":42,"Mobile":"(080) 555-0123"}`)
	f := format.Formatter{Tag: language.AmericanEnglish, Location: time.UTC}

	sections := DetailWith(f, row)
	require.Len(t, sections, 3)

	info := map[string]DetailField{}
	for _, fd := range sections[0].Fields {
		info[fd.Label] = fd
	}
	assert.NotContains(t, info, "Email")
	assert.Equal(t, format.Placeholder, info["Remarks"].Value)
	// "Mobile" only matches the phone field through normalization.
	assert.Equal(t, "tel:0805550123", info["Phone"].Tel)
	assert.Equal(t, "(080) 555-0123", info["Phone"].Value)

	assert.Equal(t, []DetailField{{Label: "Patient's Age", Value: "42"}}, sections[1].Fields)
	assert.Equal(t, []DetailField{{Label: "Payment Done", Value: "Yes"}}, sections[2].Fields)
}

func TestSummarize(t *testing.T) {
	row := decode(t, `{"Record_Id":17,"Visitor_Name":"Asha Rao","Phone":"  98765 43210 ","Center":"Indiranagar","Date_of_visit":"2024-03-05T10:00:00Z"}`)
	assert.Equal(t, Summary{
		ID:     "17",
		Name:   "Asha Rao",
		Date:   "2024-03-05",
		Center: "Indiranagar",
		Phone:  "98765 43210",
	}, Summarize(row))

	empty := Summarize(fields.NewRecord("Visitor_Name", nil, "Phone", "   "))
	assert.Equal(t, Summary{Name: format.Placeholder, Date: format.Placeholder, Center: format.Placeholder}, empty)
}

func TestRowHelpersUseSynonyms(t *testing.T) {
	row := fields.MapSource(map[string]any{
		"record_id":     "abc",
		"name":          "Lower",
		"date_of_visit": "2023-01-02",
		"mobile":        json.Number("9876543210"),
		"center":        "Hebbal",
	})
	assert.Equal(t, "abc", RecordID(row))
	assert.Equal(t, "Lower", VisitorName(row))
	assert.Equal(t, "2023-01-02", DateOfVisit(row))
	assert.Equal(t, "9876543210", Phone(row))
	assert.Equal(t, "Hebbal", Center(row))
}

func TestGeneration(t *testing.T) {
	var g Generation
	first := g.Next()
	assert.True(t, g.Current(first))

	second := g.Next()
	assert.False(t, g.Current(first))
	assert.True(t, g.Current(second))
}
