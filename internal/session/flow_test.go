package session

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarise/neuromarket/internal/catalog"
)

func mustSchema(t *testing.T, id string) catalog.Schema {
	t.Helper()
	s, ok := catalog.ByID(id)
	require.True(t, ok, "schema %s", id)
	return s
}

func TestBeginFormPrefillsOnlyOptionalDefaults(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "nano-banana-pro"))

	// Optional enums and bools arrive pre-filled.
	assert.Equal(t, "1:1", sess.Params["aspect_ratio"])
	assert.Equal(t, "1K", sess.Params["resolution"])
	// Required params are never pre-filled.
	assert.NotContains(t, sess.Params, "prompt")
}

func TestBeginFormKeepsAdminUserMode(t *testing.T) {
	sess := Session{AdminUserMode: true}
	sess.BeginForm(mustSchema(t, "z-image"))
	assert.True(t, sess.AdminUserMode)
}

func TestEveryRequiredParamIsPrompted(t *testing.T) {
	for _, schema := range catalog.All() {
		var sess Session
		sess.BeginForm(schema)

		asked := 0
		for i := 0; i < 20; i++ {
			step := sess.NextStep()
			if step.Kind == StepConfirm {
				break
			}
			switch step.Kind {
			case StepPrompt:
				asked++
				require.NoError(t, sess.ApplyText("текст запроса"))
			case StepImages:
				if step.Image.Required {
					asked++
					_, err := sess.AddImage("https://cdn.example/ref.png")
					require.NoError(t, err)
					require.NoError(t, sess.FinishImages())
				} else {
					require.NoError(t, sess.SkipImages())
				}
			case StepParam:
				asked++
				switch p := step.Param.(type) {
				case catalog.EnumParam:
					require.NoError(t, sess.ApplySelection(p.Name, p.Options[0]))
				case catalog.TextParam:
					require.NoError(t, sess.ApplyText("https://video.example/clip.mp4"))
				case catalog.BoolParam:
					require.NoError(t, sess.ApplySelection(p.Name, "true"))
				}
			}
		}

		require.Equal(t, StepConfirm, sess.NextStep().Kind, "model %s never confirmed", schema.ID)
		// One step per required param; a required image list counts as
		// one regardless of how many images were sent.
		assert.Equal(t, len(schema.RequiredNames()), asked, "model %s", schema.ID)
	}
}

func TestPromptLengthIsEnforced(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "z-image"))

	long := strings.Repeat("ж", 1001)
	err := sess.ApplyText(long)
	require.ErrorIs(t, err, ErrTooLong)
	// The step is preserved, a valid retry lands.
	assert.Equal(t, StepPrompt, sess.NextStep().Kind)
	require.NoError(t, sess.ApplyText(strings.Repeat("ж", 1000)))
}

func TestEnumSelectionRejectsUnknownOption(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "z-image"))
	require.NoError(t, sess.ApplyText("портрет кота"))

	err := sess.ApplySelection("aspect_ratio", "7:5")
	require.ErrorIs(t, err, ErrNotAnOption)
	assert.NotContains(t, sess.Params, "aspect_ratio")

	require.NoError(t, sess.ApplySelection("aspect_ratio", "16:9"))
	assert.Equal(t, StepConfirm, sess.NextStep().Kind)
}

func TestUnknownParamSelectionRejected(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "z-image"))
	err := sess.ApplySelection("no_such_param", "x")
	assert.ErrorIs(t, err, ErrNotExpected)
}

func TestTextOutsideAStepRejected(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "z-image"))
	require.NoError(t, sess.ApplyText("портрет кота"))
	require.NoError(t, sess.ApplySelection("aspect_ratio", "1:1"))

	err := sess.ApplyText("лишний текст")
	assert.ErrorIs(t, err, ErrNotExpected)
}

func TestRequiredImagesCannotBeSkipped(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "seedream/4.5-edit"))
	require.NoError(t, sess.ApplyText("убрать фон"))

	require.ErrorIs(t, sess.SkipImages(), ErrRequired)
	require.ErrorIs(t, sess.FinishImages(), ErrRequired)

	_, err := sess.AddImage("https://cdn.example/a.png")
	require.NoError(t, err)
	require.NoError(t, sess.FinishImages())
	assert.Equal(t, []string{"https://cdn.example/a.png"}, sess.Params["image_input"])
}

func TestImageCapAutoFinalizes(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "nano-banana-pro"))
	require.NoError(t, sess.ApplyText("баннер"))

	for i := 0; i < 7; i++ {
		full, err := sess.AddImage(fmt.Sprintf("https://cdn.example/%d.png", i))
		require.NoError(t, err)
		require.False(t, full)
	}
	full, err := sess.AddImage("https://cdn.example/7.png")
	require.NoError(t, err)
	assert.True(t, full)

	// The sub-flow closed itself; further images are rejected.
	_, err = sess.AddImage("https://cdn.example/8.png")
	assert.ErrorIs(t, err, ErrNotExpected)
	assert.Len(t, sess.Params["image_input"], 8)
}

func TestSkippedOptionalImagesLeaveParamUnset(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "nano-banana-pro"))
	require.NoError(t, sess.ApplyText("баннер"))
	require.NoError(t, sess.SkipImages())
	assert.NotContains(t, sess.Params, "image_input")
	assert.Equal(t, StepConfirm, sess.NextStep().Kind)
}

func TestBoolLiteralFallsBackToDefault(t *testing.T) {
	var sess Session
	sess.BeginForm(mustSchema(t, "sora-2-text-to-video"))
	require.NoError(t, sess.ApplySelection("remove_watermark", "нет"))
	assert.Equal(t, false, sess.Params["remove_watermark"])

	require.NoError(t, sess.ApplySelection("remove_watermark", "что-то странное"))
	assert.Equal(t, true, sess.Params["remove_watermark"])
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Do(7, func(sess *Session) {
		sess.BeginForm(mustSchema(t, "z-image"))
		sess.Params["prompt"] = "оригинал"
	})

	snap := store.Snapshot(7)
	snap.Params["prompt"] = "изменено"

	assert.Equal(t, "оригинал", store.Snapshot(7).Params["prompt"])
}

func TestClearPreservesAdminUserMode(t *testing.T) {
	store := NewStore()
	store.Do(7, func(sess *Session) {
		sess.AdminUserMode = true
		sess.BeginForm(mustSchema(t, "z-image"))
	})
	store.Clear(7)

	snap := store.Snapshot(7)
	assert.True(t, snap.AdminUserMode)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Schema.ID)
}

func TestSavedGenerationSurvivesClear(t *testing.T) {
	store := NewStore()
	_, ok := store.SavedGeneration(7)
	require.False(t, ok)

	store.SaveGeneration(7, "nano-banana-pro")
	store.Clear(7)

	saved, ok := store.SavedGeneration(7)
	require.True(t, ok)
	assert.Equal(t, "nano-banana-pro", saved.ModelID)
}
