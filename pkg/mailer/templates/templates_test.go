package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/config"
)

func TestRenderHTMLTransactional(t *testing.T) {
	cfg := &config.Config{OrgName: "Enxergar sem Fronteiras", OrgTagline: "Cuidado oftalmológico"}
	data := NewNotificationData(cfg, "Maria",
		WithEvent("Mutirão de Catarata", "15/03/2024", "08:00 - 12:00"),
		WithVenue("Escola Municipal", "Rua A, 100"),
	)

	for _, name := range []string{RegistrationConfirmation, EventReminder, RegistrationCancelled} {
		t.Run(name, func(t *testing.T) {
			out, err := RenderHTML(name, data)
			require.NoError(t, err)
			assert.Contains(t, out, "Olá, Maria!")
			assert.Contains(t, out, "Mutirão de Catarata")
			assert.Contains(t, out, "15/03/2024")
			assert.Contains(t, out, "08:00 - 12:00")
			assert.Contains(t, out, "Cuidado oftalmológico")
		})
	}
}

func TestRenderHTMLEscapesValues(t *testing.T) {
	data := NewNotificationData(nil, "<script>x</script>")
	out, err := RenderHTML(EventReminder, data)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>x</script>")
	assert.Contains(t, out, "Enxergar sem Fronteiras")
}

func TestRenderHTMLUnknownTemplate(t *testing.T) {
	_, err := RenderHTML("nope", nil)
	assert.Error(t, err)
	assert.False(t, Known("nope"))
	assert.True(t, Known(EventReminder))
}

func TestFormatMessageHTML(t *testing.T) {
	got := string(FormatMessageHTML("**Atenção** <b>\nchegue *cedo*"))
	assert.Equal(t, "<strong>Atenção</strong> &lt;b&gt;<br>chegue <em>cedo</em>", got)
}

func TestRenderLayout(t *testing.T) {
	out, err := RenderLayout(LayoutData{
		Subject:        "Lembrete",
		Body:           FormatMessageHTML("Olá Maria\nAté amanhã"),
		OrgName:        "ESF",
		UnsubscribeURL: "https://app.example.org/unsubscribe/p1",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Olá Maria<br>Até amanhã")
	assert.Contains(t, out, "https://app.example.org/unsubscribe/p1")
	assert.Contains(t, out, "<title>Lembrete</title>")
}

func TestDefaultSubject(t *testing.T) {
	assert.Equal(t, "Lembrete do Evento", DefaultSubject(EventReminder))
	assert.Equal(t, "Notificação", DefaultSubject("other"))
}
