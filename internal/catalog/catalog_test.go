package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsValid(t *testing.T) {
	require.NoError(t, validate(models))
}

func TestValidateRejectsDuplicateID(t *testing.T) {
	bad := []Schema{
		{ID: "dup", Params: []ParamSpec{TextParam{Name: "prompt", MaxLen: 10}}},
		{ID: "dup", Params: []ParamSpec{TextParam{Name: "prompt", MaxLen: 10}}},
	}
	assert.Error(t, validate(bad))
}

func TestValidateRejectsDuplicateParam(t *testing.T) {
	bad := []Schema{{ID: "m", Params: []ParamSpec{
		TextParam{Name: "prompt", MaxLen: 10},
		TextParam{Name: "prompt", MaxLen: 20},
	}}}
	assert.Error(t, validate(bad))
}

func TestValidateRejectsBadDefault(t *testing.T) {
	bad := []Schema{{ID: "m", Params: []ParamSpec{
		EnumParam{Name: "size", Options: []string{"a", "b"}, Default: "c"},
	}}}
	assert.Error(t, validate(bad))
}

func TestValidateRejectsSecondImageParam(t *testing.T) {
	bad := []Schema{{ID: "m", Params: []ParamSpec{
		ImageListParam{Name: "one", Max: 4},
		ImageListParam{Name: "two", Max: 4},
	}}}
	assert.Error(t, validate(bad))
}

func TestByID(t *testing.T) {
	s, ok := ByID("z-image")
	require.True(t, ok)
	assert.Equal(t, "Z-Image", s.Name)

	_, ok = ByID("missing")
	assert.False(t, ok)
}

func TestByCategorySplitsPhotoAndVideo(t *testing.T) {
	for _, s := range ByCategory(CategoryVideo) {
		assert.True(t, s.Video, "model %s", s.ID)
	}
	assert.NotEmpty(t, ByCategory(CategoryPhoto))
	assert.Empty(t, ByCategory("нет такой"))
}

func TestDefaultsSkipRequiredEnums(t *testing.T) {
	s, ok := ByID("seedream/4.5-text-to-image")
	require.True(t, ok)
	// Required enums carry a display default but it still must be
	// confirmed by the user, so Defaults includes it for pricing only.
	d := s.Defaults()
	assert.Equal(t, "1:1", d["aspect_ratio"])
	assert.NotContains(t, d, "prompt")
}

func TestRequiredNamesOrder(t *testing.T) {
	s, ok := ByID("seedream/4.5-edit")
	require.True(t, ok)
	assert.Equal(t, []string{"prompt", "image_input", "aspect_ratio", "quality"}, s.RequiredNames())
}

func TestPromptAndImageLookups(t *testing.T) {
	s, ok := ByID("nano-banana-pro")
	require.True(t, ok)

	prompt, ok := s.PromptParam()
	require.True(t, ok)
	assert.Equal(t, 10000, prompt.MaxLen)

	img, ok := s.ImageParam()
	require.True(t, ok)
	assert.Equal(t, 8, img.Max)
	assert.False(t, img.Required)

	remover, ok := ByID("sora-watermark-remover")
	require.True(t, ok)
	_, ok = remover.PromptParam()
	assert.False(t, ok)
	_, ok = remover.ImageParam()
	assert.False(t, ok)
}
