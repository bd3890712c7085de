package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/pkg/helpers"
)

var reminderBody = map[entity.ReminderType]string{
	entity.Reminder24h: "Olá {{patient_name}}! Lembramos que amanhã, {{event_date}}, das {{event_time}}, " +
		"acontece o {{event_title}} em {{event_location}} ({{event_address}}, {{event_city}}). Esperamos você!",
	entity.Reminder48h: "Olá {{patient_name}}! Faltam 2 dias para o {{event_title}}: {{event_date}}, " +
		"{{event_time}}, em {{event_location}}, {{event_address}} - {{event_city}}.",
	entity.ReminderConfirmation: "Olá {{patient_name}}! Sua inscrição no {{event_title}} em {{event_date}} " +
		"({{event_time}}) está confirmada. Local: {{event_location}}, {{event_address}} - {{event_city}}.",
}

var reminderSubject = map[entity.ReminderType]string{
	entity.Reminder24h:          "Lembrete: {{event_title}} é amanhã",
	entity.Reminder48h:          "Lembrete: {{event_title}} em 2 dias",
	entity.ReminderConfirmation: "Inscrição confirmada: {{event_title}}",
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := strings.ToLower(getenv("SEED_ADMIN_EMAIL", "admin@enxergarsemfronteira.com.br"))
	password := getenv("SEED_ADMIN_PASSWORD", "password123")
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO organizers (name, email, password_hash, role, status)
		VALUES ($1, $2, $3, 'admin', 'active')
		ON CONFLICT (email) DO UPDATE SET role = 'admin', status = 'active', updated_at = now()
		RETURNING id
	`, "Administrador", email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed organizer: %v", err)
	}
	fmt.Printf("seeded admin organizer: id=%s email=%s\n", id, email)

	created := 0
	for _, ch := range []entity.TemplateType{entity.TemplateEmail, entity.TemplateSMS, entity.TemplateWhatsApp} {
		for _, rt := range []entity.ReminderType{entity.Reminder24h, entity.Reminder48h, entity.ReminderConfirmation} {
			in := application.TemplateInput{
				Name:    application.ReminderTemplateName(ch, rt),
				Type:    ch,
				Content: reminderBody[rt],
			}
			if ch == entity.TemplateEmail {
				in.Subject = reminderSubject[rt]
			}
			if err := application.ValidateTemplate(in); err != nil {
				log.Fatalf("default template %s is invalid: %v", in.Name, err)
			}
			var subject any
			if in.Subject != "" {
				subject = in.Subject
			}
			res, err := db.Exec(`
				INSERT INTO notification_templates (name, type, subject, content, is_active)
				VALUES ($1, $2, $3, $4, TRUE)
				ON CONFLICT (name) DO NOTHING
			`, in.Name, string(in.Type), subject, in.Content)
			if err != nil {
				log.Fatalf("failed to seed template %s: %v", in.Name, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				created++
			}
		}
	}
	fmt.Printf("default reminder templates ensured (%d created)\n", created)
}
