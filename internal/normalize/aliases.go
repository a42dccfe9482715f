package normalize

import "strings"

// Field is a canonical input field.
type Field string

const (
	FieldHouseName Field = "houseName"
	FieldHouseCode Field = "houseCode"
	FieldMonthYear Field = "monthYear"
	FieldDays      Field = "days"
	FieldStatus    Field = "status"
)

// Aliases lists, per canonical field, the header labels accepted for it
// in lookup order.
var Aliases = map[Field][]string{
	FieldHouseName: {"ชื่อบ้าน", "บ้าน", "เว็บไซต์", "houseName", "name"},
	FieldHouseCode: {"รหัส", "โค้ด", "code", "houseCode"},
	FieldMonthYear: {"เดือน", "เดือน/ปี", "month"},
	FieldDays:      {"วันที่", "วัน", "day"},
	FieldStatus:    {"สถานะ", "status"},
}

// Row is one input record keyed by header label.
type Row map[string]string

// Lookup returns the trimmed value of the first alias of f that is
// present and non-blank in row.
func Lookup(row Row, f Field) string {
	for _, label := range Aliases[f] {
		if v := strings.TrimSpace(row[label]); v != "" {
			return v
		}
	}
	return ""
}
