// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

// SeedDocuments returns the built-in knowledge set.
func SeedDocuments() []Document {
	return []Document{
		{
			ID:     "nabd-capabilities",
			Title:  "قدرات Nabd الأساسية",
			Source: "internal://nabd/capabilities",
			Content: "Nabd AI Assistant يوفر محادثات عربية مع حفظ سياق المحادثة. " +
				"يدعم أنماط استخدام مثل الترجمة والبحث الذكي وإبداع المحتوى والتحويل الصوتي. " +
				"يمكنه استخدام أدوات خارجية لإحضار معلومات حديثة عند الحاجة.",
		},
		{
			ID:     "nabd-tooling",
			Title:  "أدوات Nabd",
			Source: "internal://nabd/tools",
			Content: "الأدوات المدمجة تشمل: weather لجلب حالة الطقس، web_search للبحث السريع، " +
				"و date_time للتاريخ والوقت الحاليين. " +
				"عند وجود طلب متعدد المهام يتم تقسيمه إلى خطوات ثم دمج النتائج في إجابة واحدة.",
		},
		{
			ID:     "nabd-guidelines",
			Title:  "إرشادات جودة الإجابة",
			Source: "internal://nabd/guidelines",
			Content: "الإجابة عالية الجودة يجب أن تكون مباشرة وواضحة، وتذكر القيود عند نقص البيانات، " +
				"وتتجنب الجزم بدون دليل. عند استخدام نتائج أدوات يجب عرضها بصيغة مفهومة " +
				"ثم تقديم خلاصة عملية للمستخدم.",
		},
	}
}
