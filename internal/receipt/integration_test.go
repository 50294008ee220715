package receipt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/kasticket/internal/receipt"
	"github.com/zombor/kasticket/internal/report"
	"github.com/zombor/kasticket/internal/scanning"
	"github.com/zombor/kasticket/internal/ticket"
)

const integrationReceipt = "COLRUYT LAAGSTE PRIJZEN\r\n" +
	"Kassabon 05/03/2024 14:32\r\n" +
	"Bananen bio 0,65 kg 1,98 1,29\r\n" +
	"Melk halfvol 1L 2 st 1,10 2,20\f" +
	"Kipfilet 0,500 kg 12,50 6,25\r\n" +
	"Te betalen 9,74\r\n"

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		uploads  *receipt.LocalStorage
		reports  *receipt.LocalStorage
		cache    *scanning.BoltCache
		service  *receipt.Service
		server   *receipt.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		var err error
		uploads, err = receipt.NewLocalStorage(filepath.Join(tempDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())
		reports, err = receipt.NewLocalStorage(filepath.Join(tempDir, "reports"))
		Expect(err).NotTo(HaveOccurred())
		cache, err = scanning.NewBoltCache(filepath.Join(tempDir, "pages.db"))
		Expect(err).NotTo(HaveOccurred())

		extractor := scanning.NewCached(scanning.NewChain(scanning.NewPlain()), cache)
		service = receipt.NewService(extractor, ticket.NewParser(ticket.DefaultOptions()), uploads)
		server = receipt.NewServer(service, receipt.BasicAuth{}, "test")
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if cache != nil {
			cache.Close()
		}
	})

	It("should upload a receipt, parse it and export the reports", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // export
		)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "kasticket maart.txt")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(integrationReceipt))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest(http.MethodPost, ghServer.URL()+"/api/receipts", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var batch receipt.Batch
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(respBody, &batch)).To(Succeed())
		Expect(batch.ID).NotTo(BeEmpty())
		Expect(batch.Errors).To(BeEmpty())

		// The page break splits the receipt but items keep their order
		items := service.Items()
		Expect(items).To(HaveLen(3))
		Expect(items[0].Name).To(Equal("Bananen bio"))
		Expect(items[2].Name).To(Equal("Kipfilet"))
		Expect(items[2].PurchaseDate.Format(ticket.DateLayout)).To(Equal("2024-03-05"))

		// The original upload is kept next to the parsed receipt
		data, contentType, err := service.GetReceiptFile("kasticket maart.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(contentType).To(Equal(scanning.ContentTypeText))
		Expect(string(data)).To(Equal(integrationReceipt))

		exportResp, err := http.Get(ghServer.URL() + "/api/export/months")
		Expect(err).NotTo(HaveOccurred())
		defer exportResp.Body.Close()
		exportBody, err := io.ReadAll(exportResp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(exportBody)).To(ContainSubstring("2024-03,1,3,9.74,2,1.150"))

		written, err := service.WriteReports(reports)
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(HaveLen(len(report.Views)))
		Expect(filepath.Join(tempDir, "reports", "year-products.csv")).To(BeAnExistingFile())
	})

	It("should serve repeated extractions from the cache", func() {
		counting := &countingExtractor{Extractor: scanning.NewPlain()}
		cached := receipt.NewService(scanning.NewCached(counting, cache), ticket.NewParser(ticket.DefaultOptions()), nil)
		doc := receipt.Document{Filename: "a.txt", ContentType: scanning.ContentTypeText, Data: []byte(integrationReceipt)}

		for range 2 {
			batch, err := cached.ProcessDocuments(context.Background(), []receipt.Document{doc})
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.Receipts[0].Items).To(HaveLen(3))
		}
		Expect(counting.calls).To(Equal(1))
	})
})

// countingExtractor counts the extractions that reach the wrapped extractor
type countingExtractor struct {
	scanning.Extractor
	calls int
}

func (c *countingExtractor) ExtractText(data []byte, contentType string) ([]string, error) {
	c.calls++
	return c.Extractor.ExtractText(data, contentType)
}
