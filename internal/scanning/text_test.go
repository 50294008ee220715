package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizePages", func() {
	It("should normalize line endings", func() {
		Expect(NormalizePages([]string{"a\r\nb\rc"})).To(Equal([]string{"a\nb\nc"}))
	})

	It("should replace no-break spaces", func() {
		Expect(NormalizePages([]string{"0,65\u00a0kg"})).To(Equal([]string{"0,65 kg"}))
	})

	It("should drop zero-width characters", func() {
		Expect(NormalizePages([]string{"\ufeffMelk\u200b halfvol"})).To(Equal([]string{"Melk halfvol"}))
	})

	It("should trim trailing whitespace per line", func() {
		Expect(NormalizePages([]string{"Melk 2 1,10 2,20  \t\nBrood  "})).To(Equal([]string{"Melk 2 1,10 2,20\nBrood"}))
	})

	It("should keep the page count", func() {
		Expect(NormalizePages([]string{"", "x"})).To(HaveLen(2))
	})
})

var _ = Describe("Readable", func() {
	It("should accept receipt text", func() {
		Expect(Readable([]string{"Kassabon 05/03/2024\nBananen 0,65 kg 1,98 1,29"})).To(BeTrue())
	})

	It("should reject empty pages", func() {
		Expect(Readable([]string{"", "  \n "})).To(BeFalse())
	})

	It("should reject undecodable glyphs", func() {
		Expect(Readable([]string{"\ue000\ue001\ue002\ue003 \x01\x02a"})).To(BeFalse())
	})
})
