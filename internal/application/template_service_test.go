package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/internal/domain/entity"
)

func boolPtr(b bool) *bool { return &b }

func fieldsOf(err error) []string {
	var out []string
	if ve, ok := err.(*ValidationError); ok {
		for _, f := range ve.Fields {
			out = append(out, f.Field)
		}
	}
	return out
}

func TestValidateTemplate(t *testing.T) {
	valid := TemplateInput{Name: "lembrete_sms_24h", Type: entity.TemplateSMS, Content: "Olá {{patient_name}}, até amanhã!"}
	require.NoError(t, ValidateTemplate(valid))

	tests := map[string]struct {
		in    TemplateInput
		field string
	}{
		"short name":       {TemplateInput{Name: "ab", Type: entity.TemplateSMS, Content: valid.Content}, "name"},
		"bad chars":        {TemplateInput{Name: "lembrete sms", Type: entity.TemplateSMS, Content: valid.Content}, "name"},
		"bad type":         {TemplateInput{Name: "abc", Type: "fax", Content: valid.Content}, "type"},
		"email no subject": {TemplateInput{Name: "abc", Type: entity.TemplateEmail, Content: valid.Content}, "subject"},
		"long subject":     {TemplateInput{Name: "abc", Type: entity.TemplateEmail, Subject: strings.Repeat("a", 201), Content: valid.Content}, "subject"},
		"short content":    {TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: "oi"}, "content"},
		"long sms":         {TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: strings.Repeat("a", 1601)}, "content"},
		"unknown var":      {TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: "Olá {{nome_paciente}}!"}, "content"},
		"unknown subject":  {TemplateInput{Name: "abc", Type: entity.TemplateEmail, Subject: "{{x}}", Content: valid.Content}, "subject"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateTemplate(tc.in)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(err), tc.field)
		})
	}

	// WhatsApp content only has the general limit.
	assert.NoError(t, ValidateTemplate(TemplateInput{Name: "abc", Type: entity.TemplateWhatsApp, Content: strings.Repeat("a", 3000)}))
}

func TestTemplateCreateAndUpdate(t *testing.T) {
	store := newMemTemplates()
	svc := NewTemplateService(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, TemplateInput{Name: " lembrete_sms_24h ", Type: "SMS", Subject: "ignored", Content: "Olá {{patient_name}}!"})
	require.NoError(t, err)
	assert.Equal(t, "lembrete_sms_24h", created.Name)
	assert.Equal(t, entity.TemplateSMS, created.Type)
	assert.Empty(t, created.Subject)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, TemplateInput{Name: "lembrete_sms_24h", Type: entity.TemplateSMS, Content: "Outro conteúdo aqui"})
	assert.ErrorIs(t, err, ErrTemplateNameTaken)

	updated, err := svc.Update(ctx, created.ID, TemplateInput{Name: "lembrete_sms_48h", Type: entity.TemplateSMS, Content: "Faltam dois dias, {{patient_name}}"})
	require.NoError(t, err)
	assert.Equal(t, "lembrete_sms_48h", updated.Name)
	assert.True(t, updated.IsActive)

	_, err = svc.Update(ctx, "missing", TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: "0123456789"})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateDuplicateToggleDelete(t *testing.T) {
	store := newMemTemplates(entity.NotificationTemplate{Name: "lembrete_email_24h", Type: entity.TemplateEmail, Subject: "Oi", Content: "Conteúdo do lembrete", IsActive: true})
	svc := NewTemplateService(store, nil)
	ctx := context.Background()

	first, err := svc.Duplicate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "lembrete_email_24h_copia", first.Name)
	assert.False(t, first.IsActive)
	assert.Equal(t, "Oi", first.Subject)

	second, err := svc.Duplicate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "lembrete_email_24h_copia_2", second.Name)

	toggled, err := svc.Toggle(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.ErrorIs(t, svc.Delete(ctx, second.ID), ErrTemplateNotFound)
	_, err = svc.Duplicate(ctx, "nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplatePreview(t *testing.T) {
	store := newMemTemplates(entity.NotificationTemplate{
		Name: "lembrete_email_24h", Type: entity.TemplateEmail,
		Subject: "Lembrete: {{event_title}}", Content: "Olá {{patient_name}}, {{unknown_key}}", IsActive: true,
	})
	svc := NewTemplateService(store, nil)

	res, err := svc.Preview(context.Background(), PreviewRequest{TemplateID: "t1", Variables: map[string]string{"patient_name": "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, "Lembrete: Atendimento Oftalmológico Gratuito", res.Subject)
	assert.Equal(t, "Olá Ana, {{unknown_key}}", res.Content)
	assert.Equal(t, []string{"event_title", "patient_name", "unknown_key"}, res.Variables)
	assert.Equal(t, []string{"unknown_key"}, res.MissingVariables)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unknown_key")

	draft, err := svc.Preview(context.Background(), PreviewRequest{Draft: &TemplateInput{Type: entity.TemplateSMS, Content: strings.Repeat("x", 1601)}})
	require.NoError(t, err)
	assert.Equal(t, 1601, draft.Length)
	assert.Len(t, draft.Warnings, 1)

	_, err = svc.Preview(context.Background(), PreviewRequest{})
	assert.Error(t, err)
}

func TestTemplateStats(t *testing.T) {
	store := newMemTemplates(
		entity.NotificationTemplate{Name: "a1a", Type: entity.TemplateSMS, IsActive: true},
		entity.NotificationTemplate{Name: "a2a", Type: entity.TemplateSMS, IsActive: false},
	)
	stats, err := NewTemplateService(store, nil).Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, 1, stats[0].Active)
}

func TestUpdateKeepsActiveFlagUnlessGiven(t *testing.T) {
	store := newMemTemplates(entity.NotificationTemplate{Name: "abc", Type: entity.TemplateSMS, Content: "0123456789", IsActive: false})
	svc := NewTemplateService(store, nil)

	t1, err := svc.Update(context.Background(), "t1", TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: "0123456789"})
	require.NoError(t, err)
	assert.False(t, t1.IsActive)

	t1, err = svc.Update(context.Background(), "t1", TemplateInput{Name: "abc", Type: entity.TemplateSMS, Content: "0123456789", IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, t1.IsActive)
}
