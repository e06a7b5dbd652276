package loyalty

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/ecopoint/temaedori/internal/ocr"
	"github.com/ecopoint/temaedori/internal/receipt"
	"github.com/ecopoint/temaedori/internal/reward"
)

func newTestService(db DB, provider ocr.Provider, storage Storage) *Service {
	return NewService(db, provider, storage, receipt.NewParser())
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		provider    *mockProvider
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		provider = newMockProvider()
		service = newTestService(db, provider, newMockStorage())
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	scanUpload := func(filename string) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte("fake image data"))
		writer.Close()

		resp, err := http.Post(ghttpServer.URL()+"/api/scan", writer.FormDataContentType(), &b)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("handleScanReceipt", func() {
		When("scan succeeds", func() {
			It("should return status OK", func() {
				resp := scanUpload("receipt.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the classified scan result", func() {
				resp := scanUpload("receipt.jpg")
				defer resp.Body.Close()
				var result ScanResult
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &result)).NotTo(HaveOccurred())
				Expect(result.StoreName).To(Equal("セブン-イレブン 渋谷店"))
				Expect(result.Items).To(HaveLen(2))
				Expect(result.Items[0].Category).To(Equal(reward.CategoryPreparedFood))
			})

			It("should set Content-Type to application/json", func() {
				resp := scanUpload("receipt.jpg")
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/scan", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the provider is unavailable", func() {
			BeforeEach(func() {
				provider.recognizeErr = ocr.ErrUnavailable
			})

			It("should return status Service Unavailable", func() {
				resp := scanUpload("receipt.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				resp.Body.Close()
			})

			It("should return the remediation message", func() {
				resp := scanUpload("receipt.jpg")
				defer resp.Body.Close()
				var response map[string]string
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response["error"]).To(Equal(ocr.ErrUnavailable.Error()))
			})
		})

		When("the provider finds no text", func() {
			BeforeEach(func() {
				provider.recognizeErr = ocr.ErrNoText
			})

			It("should return status Bad Request", func() {
				resp := scanUpload("receipt.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})

			It("should suggest retrying with a clearer photo", func() {
				resp := scanUpload("receipt.jpg")
				defer resp.Body.Close()
				var response map[string]string
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response["error"]).To(ContainSubstring("clearer photo"))
			})
		})
	})

	Describe("handleSubmitActivity", func() {
		var submission Submission

		BeforeEach(func() {
			db.profiles["user-1"] = &Profile{
				ID:       "user-1",
				Username: "taro",
				Rank:     "Eco Beginner",
			}
			submission = Submission{
				UserID:       "user-1",
				StoreName:    "セブン-イレブン 渋谷店",
				ReceiptTotal: 616,
				Items: []ScannedItem{
					{Name: "幕の内弁当", Price: 498, Category: reward.CategoryPreparedFood, Selected: true},
				},
			}
		})

		postSubmission := func() *http.Response {
			bodyBytes, _ := json.Marshal(submission)
			resp, err := http.Post(ghttpServer.URL()+"/api/activities", "application/json", bytes.NewBuffer(bodyBytes))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("submission succeeds", func() {
			It("should return status Created", func() {
				resp := postSubmission()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return the activity and the updated profile", func() {
				resp := postSubmission()
				defer resp.Body.Close()
				var response map[string]json.RawMessage
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response).To(HaveKey("activity"))
				Expect(response).To(HaveKey("profile"))

				var profile Profile
				Expect(json.Unmarshal(response["profile"], &profile)).NotTo(HaveOccurred())
				Expect(profile.TotalPoints).To(Equal(99))
			})
		})

		When("no item is selected", func() {
			BeforeEach(func() {
				submission.Items[0].Selected = false
			})

			It("should return status Bad Request", func() {
				resp := postSubmission()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the profile does not exist", func() {
			BeforeEach(func() {
				submission.UserID = "nonexistent"
			})

			It("should return status Not Found", func() {
				resp := postSubmission()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.saveActivityErr = errors.New("database error")
			})

			It("should return status Internal Server Error", func() {
				resp := postSubmission()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})

		When("invalid JSON body", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/activities", "application/json", bytes.NewBufferString("invalid json"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleCreateProfile", func() {
		When("creation succeeds", func() {
			It("should return status Created", func() {
				body := map[string]string{"username": "hanako", "display_name": "Hanako"}
				bodyBytes, _ := json.Marshal(body)
				resp, err := http.Post(ghttpServer.URL()+"/api/profiles", "application/json", bytes.NewBuffer(bodyBytes))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return a profile at the lowest rank", func() {
				body := map[string]string{"username": "hanako"}
				bodyBytes, _ := json.Marshal(body)
				resp, err := http.Post(ghttpServer.URL()+"/api/profiles", "application/json", bytes.NewBuffer(bodyBytes))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var profile Profile
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(respBody, &profile)).NotTo(HaveOccurred())
				Expect(profile.ID).NotTo(BeEmpty())
				Expect(profile.Rank).To(Equal("Eco Beginner"))
			})
		})

		When("the username is missing", func() {
			It("should return status Bad Request", func() {
				bodyBytes, _ := json.Marshal(map[string]string{})
				resp, err := http.Post(ghttpServer.URL()+"/api/profiles", "application/json", bytes.NewBuffer(bodyBytes))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetProfile", func() {
		When("profile exists", func() {
			BeforeEach(func() {
				db.profiles["user-1"] = &Profile{ID: "user-1", Username: "taro", Rank: "Eco Beginner"}
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/user-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the correct profile", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/user-1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var got Profile
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &got)).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal("user-1"))
				Expect(got.Username).To(Equal("taro"))
			})
		})

		When("profile does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListActivities", func() {
		When("no activities exist", func() {
			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/user-1/activities")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/user-1/activities")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var activities []*Activity
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &activities)).NotTo(HaveOccurred())
				Expect(activities).To(BeEmpty())
			})
		})

		When("activities exist", func() {
			BeforeEach(func() {
				db.activities["act-1"] = &Activity{ID: "act-1", UserID: "user-1"}
				db.activities["act-2"] = &Activity{ID: "act-2", UserID: "other"}
			})

			It("should return only the user's activities", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profiles/user-1/activities")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var activities []*Activity
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &activities)).NotTo(HaveOccurred())
				Expect(activities).To(HaveLen(1))
				Expect(activities[0].ID).To(Equal("act-1"))
			})
		})
	})

	Describe("handleGetReceiptImage", func() {
		When("image exists", func() {
			BeforeEach(func() {
				storage := newMockStorage()
				storage.files["abc_receipt.jpg"] = []byte("image bytes")
				service = newTestService(db, provider, storage)
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return the image bytes", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/images/abc_receipt.jpg")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("image bytes"))
			})

			It("should set the Content-Type from the extension", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/images/abc_receipt.jpg")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
			})
		})

		When("image does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/images/nonexistent.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListRanks", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/ranks")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should return the full rank table", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/ranks")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var ranks []reward.Rank
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &ranks)).NotTo(HaveOccurred())
			Expect(ranks).To(HaveLen(5))
			Expect(ranks[0].Name).To(Equal("Eco Beginner"))
			Expect(ranks[4].Threshold).To(Equal(10000))
		})
	})

	Describe("authenticate", func() {
		var result bool

		When("no auth is configured", func() {
			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/ranks", nil)
				Expect(err).NotTo(HaveOccurred())
				result = server.authenticate(req)
				Expect(result).To(BeTrue())
			})
		})

		When("valid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/ranks", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:pass"))
				req.Header.Set("Authorization", "Basic "+credentials)
				result = server.authenticate(req)
				Expect(result).To(BeTrue())
			})
		})

		When("invalid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return false", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/ranks", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:wrong"))
				req.Header.Set("Authorization", "Basic "+credentials)
				result = server.authenticate(req)
				Expect(result).To(BeFalse())
			})
		})
	})

	Describe("requireAuth", func() {
		When("request is unauthorized", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/ranks")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})

			It("should set WWW-Authenticate header", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/ranks")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			})
		})
	})
})
