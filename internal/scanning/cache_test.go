package scanning

import (
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltCache", func() {
	var (
		dbPath string
		cache  *BoltCache
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "pages.db")
		var err error
		cache, err = NewBoltCache(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if cache != nil {
			cache.Close()
		}
	})

	When("the key is absent", func() {
		It("should report a miss", func() {
			pages, found, err := cache.Get("missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(pages).To(BeNil())
		})
	})

	When("pages were stored", func() {
		BeforeEach(func() {
			Expect(cache.Put("key", []string{"page one", "page two"})).To(Succeed())
		})

		It("should return them", func() {
			pages, found, err := cache.Get("key")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(pages).To(Equal([]string{"page one", "page two"}))
		})

		It("should keep them after reopening", func() {
			Expect(cache.Close()).To(Succeed())
			var err error
			cache, err = NewBoltCache(dbPath)
			Expect(err).NotTo(HaveOccurred())

			pages, found, err := cache.Get("key")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(pages).To(HaveLen(2))
		})
	})
})

var _ = Describe("Cached", func() {
	var (
		inner  *mockExtractor
		cache  *BoltCache
		cached *Cached
	)

	BeforeEach(func() {
		inner = &mockExtractor{pages: []string{"Appelsap 2 1,50 3,00"}}
		var err error
		cache, err = NewBoltCache(filepath.Join(GinkgoT().TempDir(), "pages.db"))
		Expect(err).NotTo(HaveOccurred())
		cached = NewCached(inner, cache)
	})

	AfterEach(func() {
		cached.Close()
	})

	It("should extract once per document", func() {
		for range 3 {
			pages, err := cached.ExtractText([]byte("same bytes"), ContentTypePDF)
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(Equal([]string{"Appelsap 2 1,50 3,00"}))
		}
		Expect(inner.calls).To(Equal(1))
	})

	It("should key documents by content", func() {
		_, err := cached.ExtractText([]byte("one"), ContentTypePDF)
		Expect(err).NotTo(HaveOccurred())
		_, err = cached.ExtractText([]byte("two"), ContentTypePDF)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.calls).To(Equal(2))
	})

	It("should not cache failures", func() {
		inner.extractErr = errors.New("broken")
		_, err := cached.ExtractText([]byte("one"), ContentTypePDF)
		Expect(err).To(HaveOccurred())

		inner.extractErr = nil
		_, err = cached.ExtractText([]byte("one"), ContentTypePDF)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.calls).To(Equal(2))
	})

	It("should close the wrapped extractor", func() {
		Expect(cached.Close()).To(Succeed())
		Expect(inner.closed).To(BeTrue())
	})
})
