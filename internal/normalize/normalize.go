/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package normalize turns the heterogeneous spellings found in uploaded
// payment sheets (Arabic and English headers, locale-formatted numbers,
// hamza and taa-marbuta variants) into canonical fields and enum values.
// Nothing in this package returns an error: malformed input degrades to a
// lenient default and rejection is deferred to the validation stage.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetpay/fleetpay/model"
)

// Canonical column names produced by NormalizeRow.
const (
	FieldCustomerName    = "customer_name"
	FieldAmount          = "amount"
	FieldPaymentDate     = "payment_date"
	FieldPaymentMethod   = "payment_method"
	FieldTransactionType = "transaction_type"
	FieldContractNumber  = "contract_number"
	FieldAgreementNumber = "agreement_number"
	FieldNotes           = "notes"
)

var arabicFolder = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ـ", "", // tatweel
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// FoldArabic rewrites Arabic orthographic variants to a single form so
// that alias lookups survive spelling differences: hamza carriers fold to
// bare alef, alef maqsura to yaa, taa marbuta to haa, and Arabic-Indic
// digits map to ASCII.
func FoldArabic(s string) string {
	return arabicFolder.Replace(s)
}

// Canonical lowercases, trims, folds Arabic variants and collapses runs
// of whitespace, hyphens and underscores into single spaces. Name and
// reference lookups key on this form.
func Canonical(s string) string {
	return canonicalToken(s)
}

// canonicalToken lowercases, trims, folds Arabic variants and collapses
// runs of whitespace, hyphens and underscores into single spaces.
func canonicalToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = FoldArabic(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '_':
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Alias keys must be stored in the folded form canonicalToken produces,
// or they are unreachable.
var headerAliases = map[string]string{
	"customer":        FieldCustomerName,
	"customer name":   FieldCustomerName,
	"client":          FieldCustomerName,
	"name":            FieldCustomerName,
	"العميل":          FieldCustomerName,
	"اسم العميل":      FieldCustomerName,
	"المستاجر":        FieldCustomerName,
	"amount":          FieldAmount,
	"paid amount":     FieldAmount,
	"value":           FieldAmount,
	"المبلغ":          FieldAmount,
	"القيمه":          FieldAmount,
	"date":            FieldPaymentDate,
	"payment date":    FieldPaymentDate,
	"التاريخ":         FieldPaymentDate,
	"تاريخ الدفع":     FieldPaymentDate,
	"تاريخ السداد":    FieldPaymentDate,
	"method":          FieldPaymentMethod,
	"payment method":  FieldPaymentMethod,
	"طريقه الدفع":     FieldPaymentMethod,
	"وسيله الدفع":     FieldPaymentMethod,
	"type":            FieldTransactionType,
	"transaction type": FieldTransactionType,
	"النوع":           FieldTransactionType,
	"نوع المعامله":    FieldTransactionType,
	"contract":        FieldContractNumber,
	"contract number": FieldContractNumber,
	"contract no":     FieldContractNumber,
	"رقم العقد":       FieldContractNumber,
	"العقد":           FieldContractNumber,
	"agreement":       FieldAgreementNumber,
	"agreement number": FieldAgreementNumber,
	"رقم الاتفاقيه":   FieldAgreementNumber,
	"notes":           FieldNotes,
	"note":            FieldNotes,
	"description":     FieldNotes,
	"البيان":          FieldNotes,
	"ملاحظات":         FieldNotes,
	"الوصف":           FieldNotes,
}

// NormalizeRow re-keys a raw row onto the canonical column vocabulary.
// Unrecognized columns are dropped. When two source columns alias the
// same canonical field, the first non-empty value wins.
func NormalizeRow(row model.RawRow) map[string]string {
	out := make(map[string]string, len(row))
	for key, value := range row {
		canonical, ok := headerAliases[canonicalToken(key)]
		if !ok {
			continue
		}
		if existing, present := out[canonical]; present && existing != "" {
			continue
		}
		out[canonical] = strings.TrimSpace(value)
	}
	return out
}

// Keys in folded form, like headerAliases.
var methodAliases = map[string]model.PaymentMethod{
	"cash":          model.MethodCash,
	"نقدا":          model.MethodCash,
	"نقدي":          model.MethodCash,
	"كاش":           model.MethodCash,
	"check":         model.MethodCheck,
	"cheque":        model.MethodCheck,
	"شيك":           model.MethodCheck,
	"bank transfer": model.MethodBankTransfer,
	"transfer":      model.MethodBankTransfer,
	"wire":          model.MethodBankTransfer,
	"حواله":         model.MethodBankTransfer,
	"حواله بنكيه":   model.MethodBankTransfer,
	"تحويل بنكي":    model.MethodBankTransfer,
	"credit card":   model.MethodCreditCard,
	"credit":        model.MethodCreditCard,
	"visa":          model.MethodCreditCard,
	"فيزا":          model.MethodCreditCard,
	"بطاقه ائتمان":  model.MethodCreditCard,
	"debit card":    model.MethodDebitCard,
	"debit":         model.MethodDebitCard,
	"mada":          model.MethodDebitCard,
	"مدي":           model.MethodDebitCard,
	"بطاقه مدينه":   model.MethodDebitCard,
}

// Method maps a free-text payment-method token onto the closed enum.
// Alias table first, then the enum values themselves; anything else
// defaults to cash so an unknown value never rejects the row here.
func Method(raw string) model.PaymentMethod {
	method, _ := LookupMethod(raw)
	return method
}

// LookupMethod resolves a free-text method token and reports whether it
// was actually recognized. Unrecognized and empty tokens both fall back
// to cash.
func LookupMethod(raw string) (model.PaymentMethod, bool) {
	token := canonicalToken(raw)
	if token == "" {
		return model.MethodCash, false
	}
	if method, ok := methodAliases[token]; ok {
		return method, true
	}
	for _, method := range model.PaymentMethods {
		if token == canonicalToken(string(method)) {
			return method, true
		}
	}
	return model.MethodCash, false
}

var receiptKeywords = map[string]bool{
	"receipt": true, "received": true, "in": true, "income": true,
	"قبض": true, "استلام": true, "وارد": true, "ايراد": true,
}

var paymentKeywords = map[string]bool{
	"payment": true, "paid": true, "out": true, "expense": true,
	"صرف": true, "دفع": true, "منصرف": true, "مصروف": true,
}

// TransactionType maps free text onto receipt or payment, defaulting to
// receipt when no keyword matches.
func TransactionType(raw string) model.TransactionType {
	token := canonicalToken(raw)
	if paymentKeywords[token] {
		return model.TypePayment
	}
	if receiptKeywords[token] {
		return model.TypeReceipt
	}
	for word := range paymentKeywords {
		if token != "" && strings.Contains(token, word) {
			return model.TypePayment
		}
	}
	return model.TypeReceipt
}

var amountStripper = strings.NewReplacer(
	",", "",
	"٬", "",
	"٫", ".",
	" ", "",
	"ريال", "",
	"ر.س", "",
	"sar", "",
	"aed", "",
	"kwd", "",
	"$", "",
	"sr", "",
)

// Amount parses an amount-like string tolerating thousands separators,
// Arabic-Indic digits and trailing currency tokens. Unparseable input
// yields 0, which validation treats as an invalid amount.
func Amount(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = FoldArabic(s)
	s = amountStripper.Replace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// Date tries a fixed set of layouts, Arabic-Indic digits included.
// Unparseable input yields the zero time, which validation treats as a
// missing date.
func Date(raw string) time.Time {
	s := FoldArabic(strings.TrimSpace(raw))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
