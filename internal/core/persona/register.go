package persona

import "strings"

// Register は質問の言語レジスタを表す
type Register string

const (
	RegisterEnglish  Register = "english"
	RegisterHinglish Register = "hinglish"
)

// hinglishLexicon はヒングリッシュ判定に使う機能語の集合
// 1語でも一致すればヒングリッシュとみなす
var hinglishLexicon = map[string]struct{}{
	"kya": {}, "kaise": {}, "batao": {}, "bata": {}, "hai": {}, "tha": {},
	"hun": {}, "hona": {}, "matlab": {}, "kyu": {}, "ka": {}, "ki": {},
	"ho": {}, "bhai": {}, "dost": {}, "mujhe": {}, "samjha": {}, "samjhao": {},
}

// DetectRegister は質問文からレジスタを推定する
// 判定は語彙の有無のみで行い、外部呼び出しは発生しない
func DetectRegister(question string) Register {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,!?\"'()")
		if _, ok := hinglishLexicon[word]; ok {
			return RegisterHinglish
		}
	}
	return RegisterEnglish
}
