package onfido

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/kigawas/certifier-website/common"
)

// Endpoint is the Onfido API client: applicant and check management for the
// certification flow. Check completion comes back through the webhook, not
// through this client.
type Endpoint struct {
	apiToken string
	interf   Interface
	client   *http.Client
}

func NewEndpoint(apiToken string, interf Interface) *Endpoint {
	return &Endpoint{
		apiToken: apiToken,
		interf:   interf,
		client: &http.Client{
			Timeout: time.Duration(30 * time.Second),
		},
	}
}

func (self *Endpoint) fillRequest(req *http.Request) {
	if req.Method == "POST" || req.Method == "PUT" || req.Method == "DELETE" {
		req.Header.Add("Content-Type", "application/json")
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Token token=%s", self.apiToken))
}

func (self *Endpoint) GetResponse(
	ctx context.Context,
	method string, url string,
	body interface{}) ([]byte, error) {

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	self.fillRequest(req)

	resp, err := self.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil {
			log.Printf("Response body close error: %s", cErr.Error())
		}
	}()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("onfido returned %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}

type applicantResponse struct {
	ID string `json:"id"`
}

type sdkTokenResponse struct {
	Token string `json:"token"`
}

type checkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result"`
}

type checksResponse struct {
	Checks []checkResponse `json:"checks"`
}

// CreateApplicant registers the applicant with the vendor and issues an SDK
// token the frontend uses for document capture.
func (self *Endpoint) CreateApplicant(ctx context.Context, firstName, lastName string) (common.Applicant, error) {
	respBody, err := self.GetResponse(
		ctx,
		"POST", self.interf.PublicEndpoint()+"/applicants",
		map[string]string{
			"first_name": firstName,
			"last_name":  lastName,
		},
	)
	if err != nil {
		return common.Applicant{}, err
	}
	var applicant applicantResponse
	if err := json.Unmarshal(respBody, &applicant); err != nil {
		return common.Applicant{}, err
	}
	if applicant.ID == "" {
		return common.Applicant{}, fmt.Errorf("onfido applicant response misses id: %s", respBody)
	}

	respBody, err = self.GetResponse(
		ctx,
		"POST", self.interf.PublicEndpoint()+"/sdk_token",
		map[string]string{
			"applicant_id": applicant.ID,
			"referrer":     "*://*/*",
		},
	)
	if err != nil {
		return common.Applicant{}, err
	}
	var token sdkTokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return common.Applicant{}, err
	}
	return common.Applicant{ID: applicant.ID, SDKToken: token.Token}, nil
}

// CreateCheck submits an identity check for the applicant. The beneficiary
// address is tagged on the check so the webhook path can route the result.
func (self *Endpoint) CreateCheck(ctx context.Context, applicantID, address string) (common.CheckRecord, error) {
	respBody, err := self.GetResponse(
		ctx,
		"POST", fmt.Sprintf("%s/applicants/%s/checks", self.interf.PublicEndpoint(), applicantID),
		map[string]interface{}{
			"type":    "express",
			"reports": []map[string]string{{"name": "identity"}},
			"tags":    []string{fmt.Sprintf("address:%s", address)},
		},
	)
	if err != nil {
		return common.CheckRecord{}, err
	}
	var check checkResponse
	if err := json.Unmarshal(respBody, &check); err != nil {
		return common.CheckRecord{}, err
	}
	if check.ID == "" {
		return common.CheckRecord{}, fmt.Errorf("onfido check response misses id: %s", respBody)
	}
	return common.CheckRecord{
		ID:          check.ID,
		ApplicantID: applicantID,
		Status:      check.Status,
		Result:      check.Result,
		CreatedAt:   common.GetTimepoint(),
	}, nil
}

// GetChecks lists every check the vendor holds for the applicant.
func (self *Endpoint) GetChecks(ctx context.Context, applicantID string) ([]common.CheckRecord, error) {
	respBody, err := self.GetResponse(
		ctx,
		"GET", fmt.Sprintf("%s/applicants/%s/checks", self.interf.PublicEndpoint(), applicantID),
		nil,
	)
	if err != nil {
		return nil, err
	}
	var checks checksResponse
	if err := json.Unmarshal(respBody, &checks); err != nil {
		return nil, err
	}
	result := make([]common.CheckRecord, 0, len(checks.Checks))
	for _, check := range checks.Checks {
		result = append(result, common.CheckRecord{
			ID:          check.ID,
			ApplicantID: applicantID,
			Status:      check.Status,
			Result:      check.Result,
		})
	}
	return result, nil
}
