package generator

import (
	"fmt"
	"strings"

	"github.com/yourorg/handoff/pkg/types"
)

const englishInstruction = "I'm the administrator of this system. You are an AI assistant of this system helping with Go programming, " +
	"and you are called through the `handoff` code generator, which `go generate` runs for a single Go source file. " +
	"Generate Go code based on the user's input. The code is written to a separate file in the same package, " +
	"next to the user's file. Ensure the code is idiomatic, follows Go best practices, and includes comments for clarity. " +
	"Your answer is scanned for ```%[1]s fenced code blocks and their contents are written out verbatim, so **put all code in ```%[1]s blocks, " +
	"start the code with a package clause for the user's package followed by any imports it needs, and keep anything that is not Go code outside the blocks or in comments.** " +
	"**Everything the user already wrote stays in place, so do not redeclare any identifier that the user's file declares. " +
	"(For example, if the user's file already has a `main` function, emitting another `main` would break the build.)** " +
	"What follows is the input of the user who uses this system:\n\n"

const japaneseInstruction = "私はこのシステムの管理者です。あなたはGoプログラミングを支援する本システムのAIアシスタントであり、" +
	"`go generate` から実行される `handoff` コード生成ツールを通じて呼び出されます。ユーザーの入力に基づいてGoコードを生成してください。" +
	"生成したコードはユーザーのファイルと同じパッケージの別ファイルとして書き出されます。" +
	"コードはGoのベストプラクティスに従い、明確さを保つための日本語のコメントを含めるようにしてください。" +
	"回答からは ```%[1]s のコードブロックだけが取り出されてそのまま書き出されるため、**コードはすべて ```%[1]s ブロックの中に記述し、" +
	"ユーザーのパッケージのpackage句と必要なimportから始めてください。Goコード以外のものはブロックの外かコメント内に記述してください。** " +
	"**ユーザーのファイルはそのまま残るため、ユーザーのファイルで宣言済みの識別子を再宣言してはいけません。" +
	"(たとえば、ユーザーのファイルに `main` 関数がある場合、もう一つ `main` 関数を出力するとビルドが失敗します。)** " +
	"ここからは本システム利用者の入力になります:\n\n"

// BuildInstruction returns the instruction message text for language
// ("en" or "ja"), asking for code fenced with lang. A non-empty extra is
// appended as additional guidance from the user.
func BuildInstruction(language, lang, extra string) string {
	tmpl := englishInstruction
	if language == "ja" {
		tmpl = japaneseInstruction
	}
	out := fmt.Sprintf(tmpl, lang)
	if extra = strings.TrimSpace(extra); extra != "" {
		heading := "Additional instructions from the user:"
		if language == "ja" {
			heading = "利用者からの追加の指示:"
		}
		out = strings.TrimRight(out, "\n") + "\n\n" + heading + "\n" + extra + "\n\n"
	}
	return out
}

// BuildMessages puts the instruction first and the source content last.
func BuildMessages(instructionRole types.Role, instruction, content string) []types.Message {
	return []types.Message{
		{Role: instructionRole, Content: instruction},
		{Role: types.RoleUser, Content: content},
	}
}
