package jarindex

import (
	"strconv"
	"strings"
)

// ClassData is the inheritance metadata of one class.
type ClassData struct {
	ClassName   string   `json:"className"`
	SuperName   string   `json:"superName"`
	AccessFlags int      `json:"accessFlags"`
	Interfaces  []string `json:"interfaces"`
}

// ParseClassData decodes "name|super|flags|i1,i2". Missing trailing fields
// are left empty.
func ParseClassData(record string) ClassData {
	parts := strings.Split(record, "|")
	var d ClassData
	if len(parts) > 0 {
		d.ClassName = parts[0]
	}
	if len(parts) > 1 {
		d.SuperName = parts[1]
	}
	if len(parts) > 2 {
		d.AccessFlags, _ = strconv.Atoi(parts[2])
	}
	if len(parts) > 3 {
		for _, iface := range strings.Split(parts[3], ",") {
			if iface != "" {
				d.Interfaces = append(d.Interfaces, iface)
			}
		}
	}
	return d
}
