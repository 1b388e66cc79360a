package translate

// Token estimation for slice budgeting. The counts are approximations:
// English averages about four characters per token, CJK text runs closer
// to 1.5 tokens per character. Budgets derived from these numbers should
// stay well below the model's context size.

// EstimateTokens estimates the token count of mixed-language text.
func EstimateTokens(text string) int {
	cjk := 0
	other := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	if cjk == 0 {
		return ceilDiv(other, 4)
	}
	return ceilF(float64(cjk)*1.5 + float64(other)*0.25)
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF, // CJK Unified Ideographs
		r >= 0x3400 && r <= 0x4DBF, // Extension A
		r >= 0x20000 && r <= 0x2A6DF, // Extension B
		r >= 0x2A700 && r <= 0x2CEAF, // Extensions C-E
		r >= 0xF900 && r <= 0xFAFF, // Compatibility Ideographs
		r >= 0x2F800 && r <= 0x2FA1F: // Compatibility Supplement
		return true
	}
	return false
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func ceilF(f float64) int {
	n := int(f)
	if float64(n) < f {
		n++
	}
	return n
}
