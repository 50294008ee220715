package scanning

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Chain", func() {
	var (
		first       *mockExtractor
		second      *mockExtractor
		text        *mockExtractor
		chain       *Chain
		contentType string
		pages       []string
		err         error
	)

	BeforeEach(func() {
		first = &mockExtractor{contentType: ContentTypePDF, pages: []string{"Appelsap 2 1,50 3,00\r\n"}}
		second = &mockExtractor{contentType: ContentTypePDF, pages: []string{"second"}}
		text = &mockExtractor{contentType: ContentTypeText, pages: []string{"plain"}}
		chain = NewChain(first, second, text)
		contentType = ContentTypePDF
	})

	JustBeforeEach(func() {
		pages, err = chain.ExtractText([]byte("data"), contentType)
	})

	When("the first extractor succeeds", func() {
		It("should return its normalized pages", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(Equal([]string{"Appelsap 2 1,50 3,00\n"}))
		})

		It("should not call the next extractor", func() {
			Expect(second.calls).To(BeZero())
		})
	})

	When("the first extractor fails", func() {
		BeforeEach(func() {
			first.extractErr = errors.New("broken xref")
		})

		It("should fall back to the next one", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(Equal([]string{"second"}))
		})
	})

	When("the first extractor returns garbage", func() {
		BeforeEach(func() {
			first.pages = []string{"\ue000\ue001\ue002\ue003"}
		})

		It("should fall back to the next one", func() {
			Expect(pages).To(Equal([]string{"second"}))
		})
	})

	When("every extractor fails", func() {
		BeforeEach(func() {
			first.extractErr = errors.New("broken xref")
			second.extractErr = ErrNoText
		})

		It("should join the errors", func() {
			Expect(err).To(MatchError(ContainSubstring("broken xref")))
			Expect(errors.Is(err, ErrNoText)).To(BeTrue())
		})
	})

	When("the content type is text", func() {
		BeforeEach(func() {
			contentType = ContentTypeText
		})

		It("should skip the PDF extractors", func() {
			Expect(pages).To(Equal([]string{"plain"}))
			Expect(first.calls).To(BeZero())
		})
	})

	When("no extractor supports the content type", func() {
		BeforeEach(func() {
			contentType = "image/png"
		})

		It("should return ErrUnsupported", func() {
			Expect(errors.Is(err, ErrUnsupported)).To(BeTrue())
		})
	})

	Describe("Close", func() {
		It("should close every extractor", func() {
			second.closeErr = errors.New("close failed")
			Expect(chain.Close()).To(MatchError(ContainSubstring("close failed")))
			Expect(first.closed).To(BeTrue())
			Expect(text.closed).To(BeTrue())
		})
	})
})
