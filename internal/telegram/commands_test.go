package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandPlain(t *testing.T) {
	cases := map[string]CommandKind{
		"main_menu":        CmdMainMenu,
		"all_models":       CmdAllModels,
		"images_done":      CmdImagesDone,
		"skip_images":      CmdSkipImages,
		"confirm_generate": CmdConfirm,
		"cancel":           CmdCancel,
		"check_balance":    CmdBalance,
		"topup_balance":    CmdTopUp,
		"topup_custom":     CmdTopUpCustom,
		"generate_again":   CmdGenerateAgain,
		"help_menu":        CmdHelp,
		"support_contact":  CmdSupport,
		"admin_panel":      CmdAdminPanel,
		"admin_stats":      CmdAdminStats,
		"admin_test_ocr":   CmdAdminTestOCR,
		"admin_user_mode":  CmdAdminUserMode,
	}
	for data, want := range cases {
		assert.Equal(t, want, ParseCommand(data).Kind, data)
	}
}

func TestParseCommandArguments(t *testing.T) {
	cmd := ParseCommand(callbackCategory("Видео"))
	assert.Equal(t, CmdCategory, cmd.Kind)
	assert.Equal(t, "Видео", cmd.Category)

	cmd = ParseCommand(callbackSelectModel("seedream/4.5-edit"))
	assert.Equal(t, CmdSelectModel, cmd.Kind)
	assert.Equal(t, "seedream/4.5-edit", cmd.ModelID)

	cmd = ParseCommand(callbackTopUpAmount("5000"))
	assert.Equal(t, CmdTopUpAmount, cmd.Kind)
	assert.Equal(t, "5000", cmd.Amount)
}

func TestParseCommandParamValueKeepsColons(t *testing.T) {
	cmd := ParseCommand(callbackSetParam("aspect_ratio", "16:9"))
	assert.Equal(t, CmdSetParam, cmd.Kind)
	assert.Equal(t, "aspect_ratio", cmd.Param)
	assert.Equal(t, "16:9", cmd.Value)
}

func TestParseCommandUnknown(t *testing.T) {
	for _, data := range []string{"", "garbage", "set_param:", "set_param::", "select_model_typo"} {
		assert.Equal(t, CmdUnknown, ParseCommand(data).Kind, data)
	}
}
