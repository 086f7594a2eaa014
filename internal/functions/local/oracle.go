package local

import (
	"encoding/json"
)

// Input is what the offline analyzer sees of a reply
type Input struct {
	Subject           string
	Body              string
	OurReference      string
	SupplierReference string
}

// response mirrors the JSON contract of the remote model
type response struct {
	HCNNumber *string `json:"hcn_number"`
	Category  string  `json:"category"`
	Reason    string  `json:"reason"`
}

// Analyze classifies a reply with keyword and pattern heuristics and returns
// the same JSON document the remote model is asked for.
func Analyze(in Input) string {
	resp := response{Category: "Non Critical"}

	if score := CalculateCriticalScore(in.Subject, in.Body); score.Total >= 0.5 {
		resp.Category = "Critical"
		resp.Reason = score.Reason
		return encode(resp)
	}

	text := in.Subject + "\n" + in.Body
	if hcn := ExtractHCN(text, in.OurReference, in.SupplierReference); hcn != "" {
		resp.HCNNumber = &hcn
		resp.Category = "Received"
		resp.Reason = "Confirmation number found in reply"
		return encode(resp)
	}

	if IsHoldingReply(in.Subject, in.Body) {
		resp.Reason = "Hotel acknowledged the request, no HCN yet"
	} else {
		resp.Reason = "No HCN and no critical issue found"
	}
	return encode(resp)
}

func encode(r response) string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"hcn_number":null,"category":"Non Critical","reason":"Analysis failed"}`
	}
	return string(data)
}
