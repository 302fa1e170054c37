package security

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/maisgestor/portal/internal/model"
)

// validate は検証ルールを登録済みの共有バリデータ。
var validate *validator.Validate

var (
	forbiddenContent = regexp.MustCompile(`(?i)<script|javascript:|data:`)
	hexColor6        = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("nodanger", func(fl validator.FieldLevel) bool {
		return !forbiddenContent.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColor6.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return isRootRelativePath(v) || isAbsoluteHTTPURL(v)
	})
}

// newsForm はニュース記事の検証ルール。
type newsForm struct {
	Title    string `validate:"required,max=255,nodanger"`
	Content  string `validate:"required,max=10000,nodanger"`
	Excerpt  string `validate:"required,max=500,nodanger"`
	ImageURL string `validate:"omitempty,imageurl"`
	Category string `validate:"required,max=100"`
	Author   string `validate:"required,max=100,nodanger"`
}

// categoryForm はカテゴリの検証ルール。
type categoryForm struct {
	Name  string `validate:"required,max=100,nodanger"`
	Color string `validate:"hexcolor6"`
}

// violationMessages は「フィールド名.タグ」ごとの表示メッセージ。
var violationMessages = map[string]string{
	"Title.required":    "Título é obrigatório",
	"Title.max":         "Título deve ter no máximo 255 caracteres",
	"Title.nodanger":    "Título contém conteúdo potencialmente perigoso",
	"Content.required":  "Conteúdo é obrigatório",
	"Content.max":       "Conteúdo deve ter no máximo 10.000 caracteres",
	"Content.nodanger":  "Conteúdo contém conteúdo potencialmente perigoso",
	"Excerpt.required":  "Resumo é obrigatório",
	"Excerpt.max":       "Resumo deve ter no máximo 500 caracteres",
	"Excerpt.nodanger":  "Resumo contém conteúdo potencialmente perigoso",
	"ImageURL.imageurl": "URL da imagem deve ser válida",
	"Category.required": "Categoria é obrigatória",
	"Category.max":      "Categoria deve ter no máximo 100 caracteres",
	"Author.required":   "Autor é obrigatório",
	"Author.max":        "Autor deve ter no máximo 100 caracteres",
	"Author.nodanger":   "Autor contém conteúdo potencialmente perigoso",
	"Name.required":     "Nome é obrigatório",
	"Name.max":          "Nome deve ter no máximo 100 caracteres",
	"Name.nodanger":     "Nome contém conteúdo potencialmente perigoso",
	"Color.hexcolor6":   "Cor deve estar no formato hex (#RRGGBB)",
}

// NewsValidator はニュース記事とカテゴリの検証とサニタイズを行う。
type NewsValidator struct {
	sanitizer *ContentSanitizer
}

// NewNewsValidator はNewsValidatorを生成する。
func NewNewsValidator(sanitizer *ContentSanitizer) *NewsValidator {
	if sanitizer == nil {
		sanitizer = NewContentSanitizer()
	}
	return &NewsValidator{sanitizer: sanitizer}
}

// ValidateNews は入力を検証し、サニタイズ済みの値を返す。
// 違反がある場合はすべての違反を列挙したバリデーションエラーを返す。
func (v *NewsValidator) ValidateNews(in model.NewsInput) (model.NewsInput, error) {
	form := newsForm{
		Title:    in.Title,
		Content:  in.Content,
		Excerpt:  in.Excerpt,
		ImageURL: in.ImageURL,
		Category: in.Category,
		Author:   in.Author,
	}
	if violations := collectViolations(validate.Struct(form)); len(violations) > 0 {
		return model.NewsInput{}, model.NewValidationError(violations)
	}

	out := in
	out.Title = v.sanitizer.Text(in.Title)
	out.Content = v.sanitizer.HTML(in.Content)
	out.Excerpt = v.sanitizer.Text(in.Excerpt)
	out.Author = v.sanitizer.Text(in.Author)
	out.ImageURL = v.sanitizer.URL(in.ImageURL)

	// サニタイズで必須項目が空になった場合も違反として扱う
	var violations []string
	if out.Title == "" {
		violations = append(violations, violationMessages["Title.required"])
	}
	if out.Content == "" {
		violations = append(violations, violationMessages["Content.required"])
	}
	if out.Excerpt == "" {
		violations = append(violations, violationMessages["Excerpt.required"])
	}
	if out.Author == "" {
		violations = append(violations, violationMessages["Author.required"])
	}
	if len(violations) > 0 {
		return model.NewsInput{}, model.NewValidationError(violations)
	}

	return out, nil
}

// ValidateCategory はカテゴリを検証し、サニタイズ済みの値を返す。
func (v *NewsValidator) ValidateCategory(c model.NewsCategory) (model.NewsCategory, error) {
	form := categoryForm{Name: c.Name, Color: c.Color}
	if violations := collectViolations(validate.Struct(form)); len(violations) > 0 {
		return model.NewsCategory{}, model.NewValidationError(violations)
	}

	out := c
	out.Name = v.sanitizer.Text(c.Name)
	if out.Name == "" {
		return model.NewsCategory{}, model.NewValidationError([]string{violationMessages["Name.required"]})
	}
	return out, nil
}

// collectViolations はvalidatorのエラーを表示メッセージの一覧に変換する。
func collectViolations(err error) []string {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fe.Field() + "." + fe.Tag()
		if msg, ok := violationMessages[key]; ok {
			violations = append(violations, msg)
			continue
		}
		violations = append(violations, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return violations
}
