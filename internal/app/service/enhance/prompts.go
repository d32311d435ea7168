// Package enhance holds the AI writing-assistant prompts and the cleanup
// applied to model output before it reaches the client.
package enhance

import (
	"errors"
	"strings"
)

// Type selects a prompt pair. Unknown types fall back to a generic rewrite.
type Type string

const (
	TypeSummary                    Type = "summary"
	TypeGenerateSummary            Type = "generate-summary"
	TypeExperience                 Type = "experience"
	TypeProject                    Type = "project"
	TypeGenerateProjectDescription Type = "generate_project_description"
	TypeSuggestTechnologies        Type = "suggest_technologies"
	TypeSuggestSkills              Type = "suggest_skills"
	TypeGenerateResponsibilities   Type = "generate_responsibilities"
)

var ErrEmptyText = errors.New("text is required")

// Prompt is a system instruction plus the user turn sent to the model.
type Prompt struct {
	System string
	User   string
}

const textPlaceholder = "{{text}}"

const cvWriter = "أنت مساعد محترف لكتابة السير الذاتية."

var prompts = map[Type]Prompt{
	TypeSummary: {
		System: cvWriter + " مهمتك تحسين النصوص لتكون احترافية وجذابة.",
		User: `قم بتحسين النص التالي ليصبح ملخصاً مهنياً قوياً ومناسباً للسيرة الذاتية. اجعله بين 150-500 حرف:

{{text}}

قم بإرجاع النص المحسن فقط بدون أي شرح إضافي.`,
	},
	TypeGenerateSummary: {
		System: cvWriter + " مهمتك إنشاء ملخصات احترافية قوية.",
		User: `بناءً على المعلومات التالية، اكتب ملخصاً مهنياً قوياً واحداً للسيرة الذاتية (150-500 حرف):

{{text}}

اكتب ملخصاً احترافياً واحداً يبرز الخبرات والمهارات الرئيسية. أرجع النص مباشرة بدون عناوين أو ترقيم.`,
	},
	TypeExperience: {
		System: cvWriter + " مهمتك تحسين أوصاف الخبرات العملية.",
		User: `قم بتحسين وصف الخبرة العملية التالية لجعله أكثر احترافية وتأثيراً:

{{text}}

قم بإرجاع النص المحسن فقط بدون أي شرح إضافي.`,
	},
	TypeProject: {
		System: cvWriter + " مهمتك تحسين أوصاف المشاريع.",
		User: `قم بتحسين وصف المشروع التالي ليصبح أكثر احترافية (حتى 200 حرف):

{{text}}

قم بإرجاع النص المحسن فقط بدون أي شرح إضافي.`,
	},
	TypeGenerateProjectDescription: {
		System: "أنت مساعد يكتب أوصاف مشاريع. أرجع فقط الوصف بدون أي كلام إضافي.",
		User: `اكتب وصفاً مختصراً (100-200 حرف) لمشروع اسمه: {{text}}

مهم جداً: أرجع فقط الوصف مباشرة. بدون مقدمات، بدون "إليك"، بدون "بالتأكيد"، بدون شروحات.

مثال جيد: "منصة تجارة إلكترونية متكاملة لبيع المنتجات مع نظام دفع آمن وإدارة مخزون"
مثال سيء: "بالتأكيد! إليك وصف احترافي للمشروع..."

أرجع الوصف مباشرة:`,
	},
	TypeSuggestTechnologies: {
		System: "أنت مساعد خبير في اقتراح أدوات وتقنيات ومعدات مناسبة لأي مجال (طبي، هندسي، فني، حرفي، تقني). تفهم السياق وتقترح أدوات عملية ومناسبة. أرجع فقط الأسماء مفصولة بفواصل، بدون أي شرح.",
		User: `اقرأ معلومات المشروع التالية واقترح 4 أدوات أو تقنيات أو معدات أو أساليب عمل مناسبة تماماً لمجال هذا المشروع:

{{text}}

تعليمات صارمة:
1. افهم المجال من اسم المشروع والسياق (طبي، تعليمي، تطوعي، برمجي، هندسي، إداري، تصوير، تمريض، إلخ)
2. اقترح أدوات/تقنيات/معدات تناسب هذا المجال بالتحديد
3. للمجالات غير التقنية، اقترح المعدات المستخدمة (مثلاً للتمريض: فرز، تعقيم، إسعافات / للتصوير: كاميرا، عدسات، إضاءة)
4. أرجع 4 أدوات فقط مفصولة بفاصلة عربية (،) أو إنجليزية (,)

أمثلة:
- ممرضة: فرز الحالات، التعقيم، التلقيح، الخياطة الطبية
- مصور: كاميرا DSLR، عدسات تقريب، حامل ثلاثي، إضاءة
- مبرمج: React، Node.js، Git، VS Code

أرجع 4 أدوات/تقنيات مناسبة للمشروع المذكور (بدون مقدمات):
`,
	},
	TypeSuggestSkills: {
		System: "أنت خبير في التوظيف والسير الذاتية. أرجع فقط المهارات مع المستويات بالصيغة المحددة تماماً.",
		User: `بناءً على المعلومات التالية، اقترح 6 مهارات مناسبة مع مستويات متنوعة.

{{text}}

أرجع المهارات بهذه الصيغة بالضبط (كل مهارة في سطر منفصل):
اسم المهارة | المستوى

مثال:
الطهي الإيطالي | خبير
تخطيط القوائم | متقدم
إدارة الفريق | متوسط
الطهي الصحي | متقدم
إدارة المخزون | متوسط
خدمة العملاء | متقدم

مهم جداً: أرجع فقط 6 سطور، كل سطر يحتوي على: اسم المهارة | المستوى
المستويات المسموحة فقط: مبتدئ، متوسط، متقدم، خبير`,
	},
	TypeGenerateResponsibilities: {
		System: "أنت مساعد يكتب مهام وظيفية. أرجع فقط النقاط بدون مقدمات.",
		User: `اكتب 4-6 مهام ومسؤوليات للوظيفة التالية:

{{text}}

مهم جداً:
- أرجع النقاط فقط بدون أي مقدمات أو شروحات
- كل نقطة في سطر منفصل
- بدون ترقيم أو رموز (-, •, *)
- ابدأ كل نقطة بفعل قوي
- كل نقطة 100-150 حرف

مثال صحيح:
قمت بإدارة فريق من 5 موظفين وتحقيق أهداف المبيعات بنسبة 120%
طورت نظام إدارة العملاء وحسنت الإنتاجية بنسبة 35%
نظمت 10 ورش عمل تدريبية للموظفين الجدد

مثال خاطئ:
بالتأكيد! إليك المهام المناسبة...

النقاط:`,
	},
}

var defaultPrompt = Prompt{
	System: cvWriter,
	User: `قم بتحسين النص التالي ليصبح أكثر احترافية:

{{text}}`,
}

// Validate rejects blank input before any allowance is spent.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// PromptFor renders the prompt pair for t with text substituted.
func PromptFor(t Type, text string) Prompt {
	p, ok := prompts[t]
	if !ok {
		p = defaultPrompt
	}
	return Prompt{System: p.System, User: strings.ReplaceAll(p.User, textPlaceholder, text)}
}
