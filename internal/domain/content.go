package domain

import "unicode"

// MaxContentLength is the maximum number of runes allowed in a post.
const MaxContentLength = 280

// emojiTable covers the pictographic blocks plus the component code points
// (joiners, variation selectors, keycap combiner, skin tones, regional
// indicators) needed for composed sequences like family or flag emoji.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0xA9, Hi: 0xA9, Stride: 1},     // copyright
		{Lo: 0xAE, Hi: 0xAE, Stride: 1},     // registered
		{Lo: 0x200D, Hi: 0x200D, Stride: 1}, // zero-width joiner
		{Lo: 0x20E3, Hi: 0x20E3, Stride: 1}, // combining enclosing keycap
		{Lo: 0x2122, Hi: 0x2122, Stride: 1}, // trade mark
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21A9, Hi: 0x21AA, Stride: 1},
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x2328, Hi: 0x2328, Stride: 1},
		{Lo: 0x23CF, Hi: 0x23CF, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23FA, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25AA, Hi: 0x25AB, Stride: 1},
		{Lo: 0x25B6, Hi: 0x25B6, Stride: 1},
		{Lo: 0x25C0, Hi: 0x25C0, Stride: 1},
		{Lo: 0x25FB, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols + dingbats
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B07, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B50, Stride: 1},
		{Lo: 0x2B55, Hi: 0x2B55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303D, Hi: 0x303D, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
		{Lo: 0xFE0E, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1}, // regional indicators (flags)
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // includes skin tone modifiers
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F780, Hi: 0x1F7FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1},
	},
}

// ValidateContent checks the post body: non-empty, at most MaxContentLength
// runes, emoji characters only. Returns a field-level ValidationError on
// the "content" field, or nil if the content is acceptable.
func ValidateContent(content string) error {
	runes := []rune(content)
	if len(runes) == 0 {
		return &ValidationError{Field: "content", Message: "content is required"}
	}
	if len(runes) > MaxContentLength {
		return &ValidationError{Field: "content", Message: "content must be at most 280 characters"}
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isKeycapBase(r) {
			// digits, # and * are emoji only inside a keycap sequence:
			// base, optional U+FE0F, then the enclosing keycap.
			j := i + 1
			if j < len(runes) && runes[j] == 0xFE0F {
				j++
			}
			if j < len(runes) && runes[j] == 0x20E3 {
				i = j
				continue
			}
			return &ValidationError{Field: "content", Message: "can only post emojis"}
		}
		if !unicode.In(r, emojiTable) {
			return &ValidationError{Field: "content", Message: "can only post emojis"}
		}
	}
	return nil
}

func isKeycapBase(r rune) bool {
	return r == '#' || r == '*' || (r >= '0' && r <= '9')
}
