package visitors

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/harrisonrobin/visitdesk/pkg/dial"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/format"
)

var (
	nameKeys   = []string{"Visitor_Name", "visitor_name", "name"}
	idKeys     = []string{"Record_Id", "record_id", "id"}
	dateKeys   = []string{"Date_of_visit", "date_of_visit"}
	phoneKeys  = []string{"Phone", "phone", "mobile"}
	centerKeys = []string{"Center", "center"}
)

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func VisitorName(row fields.Source) string {
	v, ok := fields.PickFirst(row, nameKeys)
	if !ok || v == nil {
		return format.Placeholder
	}
	return text(v)
}

// RecordID is empty when the row has no usable id.
func RecordID(row fields.Source) string {
	v, ok := fields.PickFirst(row, idKeys)
	if !ok || v == nil {
		return ""
	}
	return text(v)
}

func DateOfVisit(row fields.Source) string {
	v, ok := fields.PickFirst(row, dateKeys)
	if !ok || v == nil {
		return format.Placeholder
	}
	return format.FormatDateOnly(v)
}

// Phone is the trimmed number, or "" when the row has none.
func Phone(row fields.Source) string {
	v, ok := fields.PickFirst(row, phoneKeys)
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(text(v))
}

func Center(row fields.Source) string {
	v, ok := fields.PickFirst(row, centerKeys)
	if !ok || v == nil {
		return format.Placeholder
	}
	return text(v)
}

// Summary is a list row ready for display.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Center string `json:"center"`
	Phone  string `json:"phone,omitempty"`
}

func Summarize(row fields.Source) Summary {
	return Summary{
		ID:     RecordID(row),
		Name:   VisitorName(row),
		Date:   DateOfVisit(row),
		Center: Center(row),
		Phone:  Phone(row),
	}
}

type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
	// Tel is the dial target for phone fields.
	Tel string `json:"tel,omitempty"`
}

type DetailSection struct {
	Title  string        `json:"title"`
	Fields []DetailField `json:"fields"`
}

// Detail lays row out by fields.Sections. Fields that are missing or hold an
// empty string are left out; a section keeps its place even when empty.
func Detail(row fields.Source) []DetailSection {
	return DetailWith(format.Default(), row)
}

func DetailWith(f format.Formatter, row fields.Source) []DetailSection {
	out := make([]DetailSection, 0, len(fields.Sections))
	for _, sec := range fields.Sections {
		ds := DetailSection{Title: sec.Title}
		for _, fd := range sec.Fields {
			v, ok := fields.PickFirst(row, fd.Keys)
			if !ok {
				continue
			}
			df := DetailField{Label: fd.Label, Value: f.Format(v)}
			if fd.IsPhone() && v != nil {
				df.Tel = dial.TelURI(text(v))
			}
			ds.Fields = append(ds.Fields, df)
		}
		out = append(out, ds)
	}
	return out
}

// Generation hands out request tokens so that only the response to the most
// recent request is applied.
type Generation struct {
	n atomic.Uint64
}

// Next invalidates every earlier token.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

func (g *Generation) Current(token uint64) bool {
	return g.n.Load() == token
}
