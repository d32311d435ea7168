package enhance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptFor(t *testing.T) {
	p := PromptFor(TypeSummary, "مهندس برمجيات")
	require.Contains(t, p.User, "مهندس برمجيات")
	require.NotContains(t, p.User, textPlaceholder)
	require.True(t, strings.HasPrefix(p.System, cvWriter))

	fallback := PromptFor("unknown", "نص")
	require.Equal(t, defaultPrompt.System, fallback.System)
	require.True(t, strings.HasSuffix(fallback.User, "نص"))

	for typ := range prompts {
		require.Contains(t, prompts[typ].User, textPlaceholder, typ)
	}
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, Validate("  \n"), ErrEmptyText)
	require.NoError(t, Validate("x"))
}

func TestProcess_Skills(t *testing.T) {
	out := Process(TypeSuggestSkills, "1. الطهي الإيطالي | خبير\n\n- إدارة الفريق\n• تخطيط القوائم | متقدم\na|b\nc|d\ne|f\ng|h")
	require.Equal(t, []Skill{
		{Name: "الطهي الإيطالي", Level: "خبير"},
		{Name: "إدارة الفريق", Level: defaultLevel},
		{Name: "تخطيط القوائم", Level: "متقدم"},
		{Name: "a", Level: "b"},
		{Name: "c", Level: "d"},
		{Name: "e", Level: "f"},
	}, out.Suggestions)
	require.Empty(t, out.EnhancedText)
}

func TestProcess_Responsibilities(t *testing.T) {
	out := Process(TypeGenerateResponsibilities, "بالتأكيد! إليك المهام:\n- قدت فريقاً\n2) طورت نظاماً\n\n* نظمت ورشاً")
	require.Equal(t, []string{"قدت فريقاً", "طورت نظاماً", "نظمت ورشاً"}, out.Responsibilities)
}

func TestProcess_ProjectDescription(t *testing.T) {
	long := "منصة تجارة إلكترونية متكاملة لبيع المنتجات مع نظام دفع آمن وإدارة مخزون"
	out := Process(TypeGenerateProjectDescription, "بالتأكيد! هذا وصف مناسب:\n"+long)
	require.Equal(t, long, out.EnhancedText)

	out = Process(TypeGenerateProjectDescription, "وصف قصير")
	require.Equal(t, "وصف قصير", out.EnhancedText)
}

func TestProcess_Technologies(t *testing.T) {
	out := Process(TypeSuggestTechnologies, "إليك الأدوات:\n- React\n- Node.js\n- Git\n- VS Code")
	require.Equal(t, "React، Node.js، Git، VS Code", out.EnhancedText)

	out = Process(TypeSuggestTechnologies, "، كاميرا، عدسات، إضاءة ،")
	require.Equal(t, "كاميرا، عدسات، إضاءة", out.EnhancedText)
}

func TestProcess_Passthrough(t *testing.T) {
	out := Process(TypeExperience, "  نص محسن  ")
	require.Equal(t, "  نص محسن  ", out.EnhancedText)
}
