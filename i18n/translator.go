package i18n

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			return "型が不正です"
		case "required":
			return "必須フィールドが不足しています"
		case "unknown_field":
			return "未知のフィールドです"
		case "not_allowed":
			return "許可されていない値です"
		case "forbidden_value":
			return "禁止されている値です"
		case "too_small":
			return "値が小さすぎます"
		case "too_big":
			return "値が大きすぎます"
		case "too_short":
			return "短すぎます"
		case "too_long":
			return "長すぎます"
		case "pattern":
			return "パターンに一致しません"
		case "empty_not_allowed":
			return "空の値は許可されていません"
		case "not_nullable":
			return "null値は許可されていません"
		case "readonly_field":
			return "読み取り専用フィールドです"
		case "dependency_unmet":
			return "フィールドの依存関係が満たされていません"
		case "unknown_rule":
			return "未知のルールです"
		case "invalid_rule_value":
			return "ルール値が不正です"
		case "unknown_type":
			return "未知の型名です"
		case "coercion_failed":
			return "型変換に失敗しました"
		case "unknown_ruleset":
			return "未知のルールセット参照です"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			return "invalid type"
		case "required":
			return "required field missing"
		case "unknown_field":
			return "unknown field"
		case "not_allowed":
			return "value not allowed"
		case "forbidden_value":
			return "value is forbidden"
		case "too_small":
			return "value too small"
		case "too_big":
			return "value too big"
		case "too_short":
			return "too short"
		case "too_long":
			return "too long"
		case "pattern":
			return "pattern mismatch"
		case "empty_not_allowed":
			return "empty value not allowed"
		case "not_nullable":
			return "null value not allowed"
		case "readonly_field":
			return "field is read-only"
		case "dependency_unmet":
			return "field dependency unmet"
		case "unknown_rule":
			return "unknown rule"
		case "invalid_rule_value":
			return "invalid rule value"
		case "unknown_type":
			return "unknown type name"
		case "coercion_failed":
			return "coercion failed"
		case "unknown_ruleset":
			return "unknown ruleset reference"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
