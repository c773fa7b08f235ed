// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/pipeshark-backend/internal/model"
)

// RenderTemplate replaces {key} placeholders with data values. Unknown
// placeholders are left untouched.
func RenderTemplate(template string, data map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// leadFields are the placeholders a draft may still carry when it reaches
// the queue, e.g. "Hi {name}".
func leadFields(lead *model.Lead) map[string]string {
	return map[string]string{
		"name":          lead.Name,
		"email":         lead.Email,
		"city":          lead.City,
		"country":       lead.Country,
		"business_type": lead.BusinessType,
	}
}
