package application

import (
	"strings"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/pkg/helpers"
)

// VariableResolver builds the placeholder values for a patient and event date.
type VariableResolver struct {
	// BaseURL is the public front-end address; links are omitted when empty.
	BaseURL string
}

func NewVariableResolver(baseURL string) *VariableResolver {
	return &VariableResolver{BaseURL: strings.TrimRight(baseURL, "/")}
}

type ResolveOptions struct {
	IncludeLinks bool
	// LinkID goes into confirmation_link; the registration or job id.
	LinkID string
}

// Resolve never fails: missing data resolves to empty strings.
func (r *VariableResolver) Resolve(p entity.Patient, d entity.EventDate, opts ResolveOptions) entity.TemplateVariables {
	vars := entity.TemplateVariables{
		"patient_name":   p.Name,
		"patient_email":  p.Email,
		"event_title":    d.Event.Title,
		"event_date":     helpers.FormatDateBR(d.Date),
		"event_time":     helpers.FormatTimeRange(d.StartTime, d.EndTime),
		"event_location": d.Event.Location,
		"event_address":  d.Event.Address,
		"event_city":     d.Event.City,
	}
	if opts.IncludeLinks && r != nil && r.BaseURL != "" {
		if opts.LinkID != "" {
			vars["confirmation_link"] = r.BaseURL + "/confirm/" + opts.LinkID
		}
		if p.ID != "" {
			vars["unsubscribe_link"] = r.BaseURL + "/unsubscribe/" + p.ID
		}
	}
	return vars
}

// MissingVariables lists the required names that are absent or blank in vars.
func MissingVariables(vars entity.TemplateVariables, required []string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Variable documents one placeholder authors may use.
type Variable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// AvailableVariables is the catalog shown to template authors and used for previews.
var AvailableVariables = []Variable{
	{Name: "patient_name", Description: "Nome do paciente", Example: "Maria Silva"},
	{Name: "patient_email", Description: "Email do paciente", Example: "maria@email.com"},
	{Name: "event_title", Description: "Título do evento", Example: "Atendimento Oftalmológico Gratuito"},
	{Name: "event_date", Description: "Data do evento (DD/MM/AAAA)", Example: "15/12/2025"},
	{Name: "event_time", Description: "Horário do evento", Example: "08:00 - 17:00"},
	{Name: "event_location", Description: "Local do evento", Example: "Centro de Saúde"},
	{Name: "event_address", Description: "Endereço do evento", Example: "Rua das Flores, 123"},
	{Name: "event_city", Description: "Cidade do evento", Example: "São Paulo"},
	{Name: "confirmation_link", Description: "Link de confirmação", Example: "https://exemplo.org/confirm/abc123"},
	{Name: "unsubscribe_link", Description: "Link de descadastro", Example: "https://exemplo.org/unsubscribe/abc123"},
	{Name: "events_count", Description: "Quantidade de eventos (envio em massa)", Example: "2"},
	{Name: "events_list", Description: "Lista de eventos (envio em massa)", Example: "Mutirão Centro, Mutirão Norte"},
	{Name: "custom_message", Description: "Mensagem livre (envio manual)", Example: "Olá!"},
}

func knownVariable(name string) bool {
	for _, v := range AvailableVariables {
		if v.Name == name {
			return true
		}
	}
	return false
}

// SampleVariables returns example values for every catalog entry.
func SampleVariables() entity.TemplateVariables {
	vars := make(entity.TemplateVariables, len(AvailableVariables))
	for _, v := range AvailableVariables {
		vars[v.Name] = v.Example
	}
	return vars
}
