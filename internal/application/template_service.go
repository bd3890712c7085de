package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/placeholder"
)

const (
	templateNameMin    = 3
	templateNameMax    = 100
	templateSubjectMax = 200
	templateContentMin = 10
	templateContentMax = 5000
	duplicateSuffix    = "_copia"
	duplicateAttempts  = 50
)

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTemplateNameTaken = errors.New("template name already exists")

	templateNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// FieldError is one failed rule on a template field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid template: " + strings.Join(msgs, "; ")
}

type TemplateInput struct {
	Name     string
	Type     entity.TemplateType
	Subject  string
	Content  string
	IsActive *bool
}

type PreviewRequest struct {
	TemplateID string
	// Draft is rendered instead of a stored template when set.
	Draft     *TemplateInput
	Variables entity.TemplateVariables
}

type PreviewResult struct {
	Subject          string   `json:"subject,omitempty"`
	Content          string   `json:"content"`
	Length           int      `json:"length"`
	Variables        []string `json:"variables"`
	MissingVariables []string `json:"missingVariables,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// TemplateService is the admin surface of the template store.
type TemplateService struct {
	Repo   repo.TemplateRepository
	Logger *logrus.Logger
}

func NewTemplateService(r repo.TemplateRepository, logger *logrus.Logger) *TemplateService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &TemplateService{Repo: r, Logger: logger}
}

func (s *TemplateService) List(ctx context.Context, f repo.TemplateFilter) ([]entity.NotificationTemplate, error) {
	return s.Repo.List(ctx, f)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	t, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*entity.NotificationTemplate, error) {
	in = normalizeInput(in)
	if err := ValidateTemplate(in); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	t := &entity.NotificationTemplate{
		Name:     in.Name,
		Type:     in.Type,
		Subject:  subjectFor(in),
		Content:  in.Content,
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrTemplateNameTaken
		}
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"template": t.Name, "type": t.Type}).Info("template created")
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, in TemplateInput) (*entity.NotificationTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in = normalizeInput(in)
	if in.IsActive == nil {
		active := t.IsActive
		in.IsActive = &active
	}
	if err := ValidateTemplate(in); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, t.ID); err != nil {
		return nil, err
	}
	t.Name = in.Name
	t.Type = in.Type
	t.Subject = subjectFor(in)
	t.Content = in.Content
	t.IsActive = *in.IsActive
	if err := s.Repo.Update(ctx, t); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrTemplateNameTaken
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

// Duplicate copies a template under the first free "<name>_copia[_N]" name, inactive.
func (s *TemplateService) Duplicate(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	base := src.Name + duplicateSuffix
	if len(base) > templateNameMax {
		base = base[:templateNameMax]
	}
	name := base
	for i := 2; ; i++ {
		taken, err := s.Repo.NameExists(ctx, name, "")
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		if i > duplicateAttempts {
			return nil, ErrTemplateNameTaken
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	cp := &entity.NotificationTemplate{
		Name:    name,
		Type:    src.Type,
		Subject: src.Subject,
		Content: src.Content,
	}
	if err := s.Repo.Create(ctx, cp); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrTemplateNameTaken
		}
		return nil, err
	}
	return cp, nil
}

func (s *TemplateService) Toggle(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsActive = !t.IsActive
	if err := s.Repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"template": t.Name, "active": t.IsActive}).Info("template toggled")
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	err := s.Repo.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

func (s *TemplateService) Stats(ctx context.Context) ([]repo.TemplateStats, error) {
	return s.Repo.Stats(ctx)
}

// Preview renders with sample data overridden by req.Variables.
func (s *TemplateService) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	var in TemplateInput
	switch {
	case req.Draft != nil:
		in = normalizeInput(*req.Draft)
	case req.TemplateID != "":
		t, err := s.Get(ctx, req.TemplateID)
		if err != nil {
			return PreviewResult{}, err
		}
		in = TemplateInput{Name: t.Name, Type: t.Type, Subject: t.Subject, Content: t.Content}
	default:
		return PreviewResult{}, &ValidationError{Fields: []FieldError{{Field: "templateId", Message: "Template ou rascunho é obrigatório"}}}
	}

	vars := SampleVariables()
	for k, v := range req.Variables {
		vars[k] = v
	}
	used := placeholder.Extract(in.Subject + "\n" + in.Content)
	if used == nil {
		used = []string{}
	}

	res := PreviewResult{
		Subject:          placeholder.Render(in.Subject, vars),
		Content:          placeholder.Render(in.Content, vars),
		Variables:        used,
		MissingVariables: MissingVariables(vars, used),
	}
	res.Length = utf8.RuneCountInString(res.Content)
	for _, key := range placeholder.Extract(res.Subject + "\n" + res.Content) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Variável {{%s}} não foi substituída", key))
	}
	switch in.Type {
	case entity.TemplateSMS:
		if res.Length > notify.MaxSMSLength {
			res.Warnings = append(res.Warnings, fmt.Sprintf("SMS com %d caracteres excede o limite de %d", res.Length, notify.MaxSMSLength))
		}
	case entity.TemplateWhatsApp:
		if res.Length > notify.MaxWhatsAppLength {
			res.Warnings = append(res.Warnings, fmt.Sprintf("WhatsApp com %d caracteres excede o limite de %d", res.Length, notify.MaxWhatsAppLength))
		}
	}
	return res, nil
}

func (s *TemplateService) checkName(ctx context.Context, name, excludeID string) error {
	taken, err := s.Repo.NameExists(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrTemplateNameTaken
	}
	return nil
}

func normalizeInput(in TemplateInput) TemplateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Type = entity.TemplateType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	return in
}

// subjectFor drops the subject of non-email templates.
func subjectFor(in TemplateInput) string {
	if in.Type == entity.TemplateEmail {
		return in.Subject
	}
	return ""
}

// ValidateTemplate applies the authoring rules and returns a *ValidationError on failure.
func ValidateTemplate(in TemplateInput) error {
	var fe []FieldError
	add := func(field, msg string) { fe = append(fe, FieldError{Field: field, Message: msg}) }

	nameLen := utf8.RuneCountInString(in.Name)
	switch {
	case in.Name == "":
		add("name", "Nome é obrigatório")
	case nameLen < templateNameMin:
		add("name", fmt.Sprintf("Nome deve ter pelo menos %d caracteres", templateNameMin))
	case nameLen > templateNameMax:
		add("name", fmt.Sprintf("Nome deve ter no máximo %d caracteres", templateNameMax))
	case !templateNameRe.MatchString(in.Name):
		add("name", "Nome deve conter apenas letras, números, _ e -")
	}

	if !in.Type.Valid() {
		add("type", "Tipo deve ser email, sms ou whatsapp")
	}

	if in.Type == entity.TemplateEmail {
		switch {
		case in.Subject == "":
			add("subject", "Assunto é obrigatório para templates de email")
		case utf8.RuneCountInString(in.Subject) > templateSubjectMax:
			add("subject", fmt.Sprintf("Assunto deve ter no máximo %d caracteres", templateSubjectMax))
		}
	}

	contentLen := utf8.RuneCountInString(in.Content)
	switch {
	case strings.TrimSpace(in.Content) == "":
		add("content", "Conteúdo é obrigatório")
	case contentLen < templateContentMin:
		add("content", fmt.Sprintf("Conteúdo deve ter pelo menos %d caracteres", templateContentMin))
	case contentLen > templateContentMax:
		add("content", fmt.Sprintf("Conteúdo deve ter no máximo %d caracteres", templateContentMax))
	case in.Type == entity.TemplateSMS && contentLen > notify.MaxSMSLength:
		add("content", fmt.Sprintf("SMS deve ter no máximo %d caracteres", notify.MaxSMSLength))
	}

	unknown := func(field, text string) {
		for _, key := range placeholder.Extract(text) {
			if !knownVariable(key) {
				add(field, fmt.Sprintf("Variável desconhecida: {{%s}}", key))
			}
		}
	}
	if in.Type == entity.TemplateEmail {
		unknown("subject", in.Subject)
	}
	unknown("content", in.Content)

	if len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}
