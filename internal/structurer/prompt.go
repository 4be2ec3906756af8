package structurer

import "fmt"

// invoicePrompt is the fixed extraction instruction sent to the
// structuring model. Field names match the invoice schema aliases; the
// hints in parentheses cover the label variants seen on real extracted
// invoices (统筹基金 vs 基金支付, 自付 vs 支付, compact numeric dates).
const invoicePrompt = `你是一个专业的医疗电子票据信息提取助手。请从以下文本中提取医疗电子票据的关键信息，
并严格按照指定的JSON格式输出。

需要提取的字段（注意：票据中的字段名称可能与下面的名称略有不同，请根据语义匹配）：
- 总金额：票据上的金额合计（小写），数值，保留2位小数
- 收款单位：医院/医疗机构名称，文本。可能出现在票据标题或抬头中
- 就诊日期：格式必须为 YYYY-MM-DD（如原文为 20250605，请转为 2025-06-05）
- 医保基金支付金额：医保统筹基金支付的金额，数值，保留2位小数（票据中可能标注为"医保统筹基金支付"）
- 个人支付：个人支付总额，数值，保留2位小数（票据中可能标注为"个人自付"）
- 个人账户支付：从个人医保账户支付的金额，数值，保留2位小数
- 个人现金支付：个人现金支付金额，数值，保留2位小数

输出示例：
{"总金额": 80.00, "收款单位": "XX医院", "就诊日期": "2025-06-05", "医保基金支付金额": 14.00, "个人支付": 66.00, "个人账户支付": 66.00, "个人现金支付": 0.00}

如果某个字段在文本中确实找不到，请将其值设为 null。

请只输出纯JSON，不要输出` + "```json" + `标记或其他任何内容。

以下是票据文本内容：
---
%s
---`

// BuildInvoicePrompt renders the extraction prompt around the flattened
// invoice text.
func BuildInvoicePrompt(text string) string {
	return fmt.Sprintf(invoicePrompt, text)
}
