package fields

import "regexp"

// FieldDef names one semantic field and the keys it is stored under.
type FieldDef struct {
	Label string
	Keys  []string
}

// SectionDef groups fields under a heading. Order is presentation order.
type SectionDef struct {
	Title  string
	Fields []FieldDef
}

var phoneKey = regexp.MustCompile(`(?i)phone|mobile`)

// IsPhone reports whether the field holds a dialable number.
func (f FieldDef) IsPhone() bool {
	if f.Label == "Phone" {
		return true
	}
	for _, k := range f.Keys {
		if phoneKey.MatchString(k) {
			return true
		}
	}
	return false
}

// Sections is the visitor detail layout.
var Sections = []SectionDef{
	{
		Title: "Visitor Information",
		Fields: []FieldDef{
			{Label: "Visitor Name", Keys: []string{"Visitor_Name", "name", "visitor_name"}},
			{Label: "Visitor Owner", Keys: []string{"Visitor_Owner", "owner", "visitor_owner"}},
			{Label: "Center", Keys: []string{"Center", "centre", "branch"}},
			{Label: "Date of Entry", Keys: []string{"Date_of_Entry", "date_of_entry", "created_at"}},
			{Label: "Date of visit", Keys: []string{"Date_of_visit", "date_of_visit", "visit_date"}},
			{Label: "Date of followup", Keys: []string{"Date_of_followup", "date_of_followup"}},
			{Label: "Phone", Keys: []string{"Phone", "phone", "mobile"}},
			{Label: "Email", Keys: []string{"Email", "email"}},
			{Label: "Address", Keys: []string{"Address", "address"}},
			{Label: "Visit Reason", Keys: []string{"Visit_Reason", "visit_reason", "reason"}},
			{Label: "Hearing aid status", Keys: []string{"Hearing_aid_status", "hearing_aid_status"}},
			{Label: "Remarks", Keys: []string{"Remarks", "remarks", "notes"}},
			{Label: "Reference", Keys: []string{"Reference", "reference"}},
		},
	},
	{
		Title: "Clinical Details",
		Fields: []FieldDef{
			{Label: "Patient's Age", Keys: []string{"Patient_Age", "patient_age", "age"}},
			{Label: "Symptoms", Keys: []string{"Symptoms", "symptoms"}},
			{Label: "Rinne test", Keys: []string{"Rinne_test", "rinne_test"}},
			{Label: "Weber's test", Keys: []string{"Webers_test", "weber_test"}},
			{Label: "Test name", Keys: []string{"Test_name", "test_name"}},
			{Label: "Name of Hearing Aid", Keys: []string{"Name_of_Hearing_Aid", "name_of_hearing_aid"}},
			{Label: "Date of purchase", Keys: []string{"Date_of_purchase", "date_of_purchase"}},
		},
	},
	{
		Title: "Hearing Aid Sale",
		Fields: []FieldDef{
			{Label: "Trial period", Keys: []string{"Trial_period", "trial_period"}},
			{Label: "Warranty", Keys: []string{"Warranty", "warranty"}},
			{Label: "Who sold?", Keys: []string{"Who_sold", "who_sold", "sold_by"}},
			{Label: "Date of sale", Keys: []string{"Date_of_sale", "date_of_sale"}},
			{Label: "Payment Done", Keys: []string{"Payment_Done", "payment_done"}},
		},
	},
}
