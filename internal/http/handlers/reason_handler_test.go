package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tbourn/go-request-storage/internal/domain"
)

const testReasonID = "ee555555-5555-4555-8555-555555555555"

func reasonBody(id, name string) map[string]any {
	body := map[string]any{"name": name}
	if id != "" {
		body["id"] = id
	}
	return body
}

func TestCreateReason_Created(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody(testReasonID, "Patron request"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got domain.CancellationReason
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != testReasonID || got.Name != "Patron request" {
		t.Fatalf("unexpected echo: %+v", got)
	}
}

func TestCreateReason_DuplicateName_Returns422(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody("", "Patron request"))
	w := doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody("", "Patron request"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	ve := decodeValidation(t, w)
	if ve.Errors[0].Code != ErrCodeDuplicateName {
		t.Fatalf("code = %q", ve.Errors[0].Code)
	}
}

func TestCreateReason_MissingActor_Returns422(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/cancellation-reasons", "", reasonBody("", "Patron request"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestListReasons_SortedCollection(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody("", "Patron request"))
	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody("", "Item damaged"))

	w := doJSON(t, r, http.MethodGet, "/cancellation-reasons", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got ReasonCollection
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalRecords != 2 || len(got.CancellationReasons) != 2 {
		t.Fatalf("unexpected collection: %+v", got)
	}
	if got.CancellationReasons[0].Name != "Item damaged" {
		t.Fatalf("name order not applied: %q first", got.CancellationReasons[0].Name)
	}
}

func TestPutReason_Replaces(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody(testReasonID, "Patron request"))

	update := reasonBody("", "Patron changed their mind")
	update["requiresAdditionalInformation"] = true
	if w := doJSON(t, r, http.MethodPut, "/cancellation-reasons/"+testReasonID, testActor, update); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/cancellation-reasons/"+testReasonID, "", nil)
	var got domain.CancellationReason
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Patron changed their mind" || !got.RequiresAdditionalInformation {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestDeleteReason_Unreferenced_NoContent(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody(testReasonID, "Patron request"))
	if w := doJSON(t, r, http.MethodDelete, "/cancellation-reasons/"+testReasonID, testActor, nil); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/cancellation-reasons/"+testReasonID, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDeleteReason_Referenced_Returns400(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/cancellation-reasons", testActor, reasonBody(testReasonID, "Patron request"))

	// Reference from a closed request still blocks deletion.
	body := requestBody(testReqID, nil)
	body["status"] = "Closed - Cancelled"
	body["cancellationReasonId"] = testReasonID
	if w := doJSON(t, r, http.MethodPost, "/requests", testActor, body); w.Code != http.StatusCreated {
		t.Fatalf("seed request: %d %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodDelete, "/cancellation-reasons/"+testReasonID, testActor, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != ErrCodeReasonInUse {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestGetReason_NotFound_Returns404(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := doJSON(t, r, http.MethodGet, "/cancellation-reasons/"+testReasonID, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
