package models

// AsyncWebHook is the sentinel webHook value signalling fire-and-forget
// delivery: the provider returns an external task id instead of the result.
const AsyncWebHook = "-1"

// MaxReferenceImages caps the number of reference images accepted on video
// generation requests.
const MaxReferenceImages = 3

// GenerateRequest is the validated inbound generation request handed over
// by the API layer.
type GenerateRequest struct {
	Type        string `json:"type"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	WebHook     string `json:"webHook,omitempty"`

	// Video-specific inputs.
	Duration      int      `json:"duration,omitempty"`
	Image         string   `json:"image,omitempty"`
	FirstFrameURL string   `json:"firstFrameUrl,omitempty"`
	LastFrameURL  string   `json:"lastFrameUrl,omitempty"`
	URLs          []string `json:"urls,omitempty"`
}

// Async reports whether the caller requested fire-and-forget delivery.
func (r *GenerateRequest) Async() bool {
	return r.WebHook == AsyncWebHook
}

// Sanitize applies request-level defaults and caps.
func (r *GenerateRequest) Sanitize() {
	if r.Quantity < 1 {
		r.Quantity = 1
	}
	if len(r.URLs) > MaxReferenceImages {
		r.URLs = r.URLs[:MaxReferenceImages]
	}
}

// Params serializes the request into a flat map for audit/resume storage
// and as the parameter mapper's input context.
func (r *GenerateRequest) Params() JSONB {
	params := JSONB{
		"type":   r.Type,
		"prompt": r.Prompt,
		"model":  r.Model,
	}
	if r.Resolution != "" {
		params["resolution"] = r.Resolution
	}
	if r.AspectRatio != "" {
		params["aspect_ratio"] = r.AspectRatio
	}
	if r.Quantity > 0 {
		params["quantity"] = r.Quantity
	}
	if r.Duration > 0 {
		params["duration"] = r.Duration
	}
	if r.Image != "" {
		params["image"] = r.Image
	}
	if r.FirstFrameURL != "" {
		params["first_frame_url"] = r.FirstFrameURL
	}
	if r.LastFrameURL != "" {
		params["last_frame_url"] = r.LastFrameURL
	}
	if len(r.URLs) > 0 {
		urls := make([]any, len(r.URLs))
		for i, u := range r.URLs {
			urls[i] = u
		}
		params["urls"] = urls
	}
	return params
}
