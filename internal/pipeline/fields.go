package pipeline

import "strings"

// DeriveFields tags the query with the research topics it mentions.
func DeriveFields(query string) []string {
	q := strings.ToLower(query)
	fields := make([]string, 0)

	if strings.Contains(q, "3d") || strings.Contains(q, "in vitro") || strings.Contains(q, "in-vitro") {
		fields = append(fields, "3D cell cultures", "Organoids", "Microfluidic systems")
	}
	if strings.Contains(q, "toxic") {
		fields = append(fields, "Director of Toxicology")
	}
	if strings.Contains(q, "liver") || strings.Contains(q, "dili") {
		fields = append(fields, "Drug-Induced Liver Injury")
	}
	return fields
}
