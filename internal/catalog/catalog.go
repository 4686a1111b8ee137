package catalog

import "fmt"

// ParamSpec is one parameter declared by a model schema. The concrete
// variants are TextParam, EnumParam, BoolParam and ImageListParam.
type ParamSpec interface {
	ParamName() string
	ParamLabel() string
	IsRequired() bool
}

// TextParam is free text bounded by MaxLen.
type TextParam struct {
	Name     string
	Label    string
	Required bool
	MaxLen   int
}

// EnumParam is a fixed choice set. Default must be one of Options.
type EnumParam struct {
	Name     string
	Label    string
	Required bool
	Options  []string
	Default  string
}

// BoolParam is a yes/no choice with a schema default.
type BoolParam struct {
	Name    string
	Label   string
	Default bool
}

// ImageListParam collects up to Max uploaded image URLs.
type ImageListParam struct {
	Name     string
	Label    string
	Required bool
	Max      int
}

func (p TextParam) ParamName() string      { return p.Name }
func (p TextParam) ParamLabel() string     { return p.Label }
func (p TextParam) IsRequired() bool       { return p.Required }
func (p EnumParam) ParamName() string      { return p.Name }
func (p EnumParam) ParamLabel() string     { return p.Label }
func (p EnumParam) IsRequired() bool       { return p.Required }
func (p BoolParam) ParamName() string      { return p.Name }
func (p BoolParam) ParamLabel() string     { return p.Label }
func (p BoolParam) IsRequired() bool       { return false }
func (p ImageListParam) ParamName() string { return p.Name }
func (p ImageListParam) ParamLabel() string { return p.Label }
func (p ImageListParam) IsRequired() bool  { return p.Required }

// HasOption reports whether v is one of the enumerated values.
func (p EnumParam) HasOption(v string) bool {
	for _, o := range p.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Schema describes one generation model: display metadata plus its
// ordered parameter list.
type Schema struct {
	ID          string
	Name        string
	Description string
	Category    string
	Emoji       string
	PriceNote   string
	Video       bool
	Params      []ParamSpec
}

// Param returns the spec with the given name.
func (s Schema) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.ParamName() == name {
			return p, true
		}
	}
	return nil, false
}

// ImageParam returns the schema's image-bearing parameter, if any.
func (s Schema) ImageParam() (ImageListParam, bool) {
	for _, p := range s.Params {
		if img, ok := p.(ImageListParam); ok {
			return img, true
		}
	}
	return ImageListParam{}, false
}

// PromptParam returns the schema's "prompt" text parameter, if declared.
func (s Schema) PromptParam() (TextParam, bool) {
	for _, p := range s.Params {
		if t, ok := p.(TextParam); ok && t.Name == "prompt" {
			return t, true
		}
	}
	return TextParam{}, false
}

// Defaults returns the schema defaults for params that declare one.
func (s Schema) Defaults() map[string]any {
	out := make(map[string]any)
	for _, p := range s.Params {
		switch v := p.(type) {
		case EnumParam:
			if v.Default != "" {
				out[v.Name] = v.Default
			}
		case BoolParam:
			out[v.Name] = v.Default
		}
	}
	return out
}

// RequiredNames returns the names of required params in declaration order.
func (s Schema) RequiredNames() []string {
	var out []string
	for _, p := range s.Params {
		if p.IsRequired() {
			out = append(out, p.ParamName())
		}
	}
	return out
}

const (
	CategoryPhoto = "Фото"
	CategoryVideo = "Видео"
)

var models = []Schema{
	{
		ID:          "z-image",
		Name:        "Z-Image",
		Description: "Эффективная модель генерации изображений от Tongyi-MAI. Фотореалистичный вывод, быстрая производительность Turbo и точный двуязычный рендеринг текста.",
		Category:    CategoryPhoto,
		Emoji:       "🖼️",
		PriceNote:   "за изображение",
		Params: []ParamSpec{
			TextParam{Name: "prompt", Label: "Описание изображения", Required: true, MaxLen: 1000},
			EnumParam{Name: "aspect_ratio", Label: "Соотношение сторон", Required: true, Options: []string{"1:1", "4:3", "3:4", "16:9", "9:16"}, Default: "1:1"},
		},
	},
	{
		ID:          "nano-banana-pro",
		Name:        "Nano Banana Pro",
		Description: "Google DeepMind модель с улучшенным качеством 2K/4K, интеллектуальным масштабированием, улучшенным рендерингом текста и согласованностью персонажей.",
		Category:    CategoryPhoto,
		Emoji:       "🍌",
		PriceNote:   "за изображение",
		Params: []ParamSpec{
			TextParam{Name: "prompt", Label: "Описание изображения", Required: true, MaxLen: 10000},
			ImageListParam{Name: "image_input", Label: "Референсные изображения", Required: false, Max: 8},
			EnumParam{Name: "aspect_ratio", Label: "Соотношение сторон", Options: []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9", "auto"}, Default: "1:1"},
			EnumParam{Name: "resolution", Label: "Разрешение", Options: []string{"1K", "2K", "4K"}, Default: "1K"},
			EnumParam{Name: "output_format", Label: "Формат файла", Options: []string{"png", "jpg"}, Default: "png"},
		},
	},
	{
		ID:          "seedream/4.5-text-to-image",
		Name:        "Seedream 4.5 Text-to-Image",
		Description: "Bytedance модель для генерации 4K изображений, точного редактирования и согласованного вывода нескольких изображений. Генерация из текста.",
		Category:    CategoryPhoto,
		Emoji:       "🎨",
		PriceNote:   "за изображение",
		Params: []ParamSpec{
			TextParam{Name: "prompt", Label: "Описание изображения", Required: true, MaxLen: 3000},
			EnumParam{Name: "aspect_ratio", Label: "Соотношение сторон", Required: true, Options: []string{"1:1", "4:3", "3:4", "16:9", "9:16", "2:3", "3:2", "21:9"}, Default: "1:1"},
			EnumParam{Name: "quality", Label: "Качество", Required: true, Options: []string{"basic", "high"}, Default: "basic"},
		},
	},
	{
		ID:          "seedream/4.5-edit",
		Name:        "Seedream 4.5 Edit",
		Description: "Bytedance модель для генерации 4K изображений, точного редактирования и согласованного вывода нескольких изображений. Редактирование изображений.",
		Category:    CategoryPhoto,
		Emoji:       "✏️",
		PriceNote:   "за изображение",
		Params: []ParamSpec{
			TextParam{Name: "prompt", Label: "Описание изменений", Required: true, MaxLen: 3000},
			ImageListParam{Name: "image_input", Label: "Изображение для редактирования", Required: true, Max: 8},
			EnumParam{Name: "aspect_ratio", Label: "Соотношение сторон", Required: true, Options: []string{"1:1", "4:3", "3:4", "16:9", "9:16", "2:3", "3:2", "21:9"}, Default: "1:1"},
			EnumParam{Name: "quality", Label: "Качество", Required: true, Options: []string{"basic", "high"}, Default: "basic"},
		},
	},
	{
		ID:          "sora-watermark-remover",
		Name:        "Sora 2 Watermark Remover",
		Description: "Удаление динамических водяных знаков с видео Sora 2 с помощью AI-детекции и отслеживания движения. Сохраняет плавность и естественность кадров.",
		Category:    CategoryVideo,
		Emoji:       "🎬",
		PriceNote:   "за использование",
		Video:       true,
		Params: []ParamSpec{
			TextParam{Name: "video_url", Label: "Ссылка на видео Sora 2", Required: true, MaxLen: 500},
		},
	},
	{
		ID:          "sora-2-text-to-video",
		Name:        "Sora 2 Text-to-Video",
		Description: "OpenAI Sora 2 — модель генерации видео из текста. Реалистичное движение, физическая согласованность, улучшенный контроль над стилем, сценой и соотношением сторон.",
		Category:    CategoryVideo,
		Emoji:       "🎥",
		PriceNote:   "за 10-секундное видео",
		Video:       true,
		Params: []ParamSpec{
			TextParam{Name: "prompt", Label: "Описание видео", Required: true, MaxLen: 10000},
			EnumParam{Name: "aspect_ratio", Label: "Ориентация", Options: []string{"portrait", "landscape"}, Default: "landscape"},
			EnumParam{Name: "n_frames", Label: "Длительность", Options: []string{"10", "15"}, Default: "10"},
			BoolParam{Name: "remove_watermark", Label: "Удалить водяной знак", Default: true},
		},
	},
}

var categories = []string{CategoryPhoto, CategoryVideo}

func init() {
	if err := validate(models); err != nil {
		panic(err)
	}
}

func validate(list []Schema) error {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if s.ID == "" {
			return fmt.Errorf("catalog: schema with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("catalog: duplicate model id %q", s.ID)
		}
		seen[s.ID] = true

		images := 0
		names := make(map[string]bool, len(s.Params))
		for _, p := range s.Params {
			if names[p.ParamName()] {
				return fmt.Errorf("catalog: %s: duplicate param %q", s.ID, p.ParamName())
			}
			names[p.ParamName()] = true
			switch v := p.(type) {
			case TextParam:
				if v.MaxLen <= 0 {
					return fmt.Errorf("catalog: %s: param %q has no max length", s.ID, v.Name)
				}
			case EnumParam:
				if len(v.Options) == 0 {
					return fmt.Errorf("catalog: %s: param %q has no options", s.ID, v.Name)
				}
				if v.Default != "" && !v.HasOption(v.Default) {
					return fmt.Errorf("catalog: %s: param %q default %q is not an option", s.ID, v.Name, v.Default)
				}
			case ImageListParam:
				images++
				if v.Max <= 0 {
					return fmt.Errorf("catalog: %s: param %q has no image cap", s.ID, v.Name)
				}
			}
		}
		if images > 1 {
			return fmt.Errorf("catalog: %s: more than one image param", s.ID)
		}
	}
	return nil
}

// ByID returns the schema with the given model id.
func ByID(id string) (Schema, bool) {
	for _, s := range models {
		if s.ID == id {
			return s, true
		}
	}
	return Schema{}, false
}

// ByCategory returns schemas belonging to the given category, in catalog order.
func ByCategory(category string) []Schema {
	var out []Schema
	for _, s := range models {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Categories returns the category list in display order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// All returns every schema in catalog order.
func All() []Schema {
	out := make([]Schema, len(models))
	copy(out, models)
	return out
}
