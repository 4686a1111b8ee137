package telegram

import "strings"

// CommandKind enumerates every inline-button action the bot issues.
// Callback payloads are decoded into a Command once, at the update
// boundary; handlers never parse strings themselves.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdMainMenu
	CmdAllModels
	CmdCategory
	CmdSelectModel
	CmdSetParam
	CmdImagesDone
	CmdSkipImages
	CmdConfirm
	CmdCancel
	CmdBalance
	CmdTopUp
	CmdTopUpAmount
	CmdTopUpCustom
	CmdGenerateAgain
	CmdHelp
	CmdSupport
	CmdAdminPanel
	CmdAdminStats
	CmdAdminTestOCR
	CmdAdminUserMode
)

const (
	cbMainMenu      = "main_menu"
	cbAllModels     = "all_models"
	cbCategory      = "category:"
	cbSelectModel   = "select_model:"
	cbSetParam      = "set_param:"
	cbImagesDone    = "images_done"
	cbSkipImages    = "skip_images"
	cbConfirm       = "confirm_generate"
	cbCancel        = "cancel"
	cbBalance       = "check_balance"
	cbTopUp         = "topup_balance"
	cbTopUpAmount   = "topup_amount:"
	cbTopUpCustom   = "topup_custom"
	cbGenerateAgain = "generate_again"
	cbHelp          = "help_menu"
	cbSupport       = "support_contact"
	cbAdminPanel    = "admin_panel"
	cbAdminStats    = "admin_stats"
	cbAdminTestOCR  = "admin_test_ocr"
	cbAdminUserMode = "admin_user_mode"
)

// Command is a decoded callback payload. Only the fields implied by
// Kind are set.
type Command struct {
	Kind     CommandKind
	Category string
	ModelID  string
	Param    string
	Value    string
	Amount   string
}

// ParseCommand decodes a raw callback data string. Unknown payloads
// map to CmdUnknown and are acknowledged with no action.
func ParseCommand(data string) Command {
	switch data {
	case cbMainMenu:
		return Command{Kind: CmdMainMenu}
	case cbAllModels:
		return Command{Kind: CmdAllModels}
	case cbImagesDone:
		return Command{Kind: CmdImagesDone}
	case cbSkipImages:
		return Command{Kind: CmdSkipImages}
	case cbConfirm:
		return Command{Kind: CmdConfirm}
	case cbCancel:
		return Command{Kind: CmdCancel}
	case cbBalance:
		return Command{Kind: CmdBalance}
	case cbTopUp:
		return Command{Kind: CmdTopUp}
	case cbTopUpCustom:
		return Command{Kind: CmdTopUpCustom}
	case cbGenerateAgain:
		return Command{Kind: CmdGenerateAgain}
	case cbHelp:
		return Command{Kind: CmdHelp}
	case cbSupport:
		return Command{Kind: CmdSupport}
	case cbAdminPanel:
		return Command{Kind: CmdAdminPanel}
	case cbAdminStats:
		return Command{Kind: CmdAdminStats}
	case cbAdminTestOCR:
		return Command{Kind: CmdAdminTestOCR}
	case cbAdminUserMode:
		return Command{Kind: CmdAdminUserMode}
	}

	switch {
	case strings.HasPrefix(data, cbCategory):
		return Command{Kind: CmdCategory, Category: data[len(cbCategory):]}
	case strings.HasPrefix(data, cbSelectModel):
		return Command{Kind: CmdSelectModel, ModelID: data[len(cbSelectModel):]}
	case strings.HasPrefix(data, cbSetParam):
		// Values may contain colons (aspect ratios), split on the
		// first two only.
		rest := data[len(cbSetParam):]
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return Command{Kind: CmdUnknown}
		}
		return Command{Kind: CmdSetParam, Param: parts[0], Value: parts[1]}
	case strings.HasPrefix(data, cbTopUpAmount):
		return Command{Kind: CmdTopUpAmount, Amount: data[len(cbTopUpAmount):]}
	}
	return Command{Kind: CmdUnknown}
}

func callbackCategory(name string) string        { return cbCategory + name }
func callbackSelectModel(id string) string       { return cbSelectModel + id }
func callbackSetParam(name, value string) string { return cbSetParam + name + ":" + value }
func callbackTopUpAmount(amount string) string   { return cbTopUpAmount + amount }
