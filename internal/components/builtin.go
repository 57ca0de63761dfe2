package components

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/types"
)

func num(v float64) *float64 { return &v }

func options(values ...string) []schema.Option {
	out := make([]schema.Option, len(values))
	for i, v := range values {
		out[i] = schema.Option{Value: v}
	}
	return out
}

// Shared style fields.
var (
	backgroundField = schema.Field{Name: "backgroundColor", Label: "Background", Type: schema.TypeColor, Group: schema.GroupStyle}
	textColorField  = schema.Field{Name: "textColor", Label: "Text color", Type: schema.TypeColor, Group: schema.GroupStyle}
	alignField      = schema.Field{Name: "textAlign", Label: "Alignment", Type: schema.TypeSelect, Default: "left",
		Options: options("left", "center", "right"), Group: schema.GroupStyle}
	paddingField = schema.Field{Name: "padding", Type: schema.TypeNumber, Default: 32.0, Min: num(0), Max: num(200), Group: schema.GroupAdvanced}
	titleField   = func(def string) schema.Field {
		return schema.Field{Name: "title", Type: schema.TypeString, Default: def, MaxLength: 120}
	}
)

// Builtins returns the runtimes of every built-in component type in palette
// order.
func Builtins() []*Class {
	return []*Class{
		hero(), biography(), topics(), questions(), social(), contact(),
		stats(), callToAction(), testimonials(), gallery(), video(), logoGrid(),
	}
}

// RegisterBuiltins registers every built-in type with reg.
func RegisterBuiltins(reg *registry.Registry) error {
	for _, class := range Builtins() {
		if err := reg.RegisterClass(class.def.Type, class); err != nil {
			return fmt.Errorf("register %s: %w", class.def.Type, err)
		}
	}
	return nil
}

func hero() *Class {
	return &Class{
		def: registry.Definition{
			Type:        "hero",
			Title:       "Hero",
			Description: "Name, headline and portrait at the top of the kit.",
			Icon:        "star",
			Category:    "header",
			ContentSchema: schema.New(
				schema.Field{Name: "name", Type: schema.TypeString, Required: true, MaxLength: 80},
				schema.Field{Name: "title", Label: "Headline", Type: schema.TypeString, Default: "Speaker · Author · Host", MaxLength: 120},
				schema.Field{Name: "tagline", Type: schema.TypeText, MaxLength: 280},
				schema.Field{Name: "imageUrl", Label: "Portrait", Type: schema.TypeImage},
				schema.Field{Name: "ctaText", Label: "Button text", Type: schema.TypeString, MaxLength: 40},
				schema.Field{Name: "ctaUrl", Label: "Button link", Type: schema.TypeURL, Group: schema.GroupAdvanced},
			),
			StyleSchema: schema.New(
				schema.Field{Name: "backgroundColor", Label: "Background", Type: schema.TypeColor, Default: "#1f2937", Group: schema.GroupStyle},
				schema.Field{Name: "textColor", Label: "Text color", Type: schema.TypeColor, Default: "#ffffff", Group: schema.GroupStyle},
				schema.Field{Name: "alignment", Type: schema.TypeSelect, Default: "center", Options: options("left", "center", "right"), Group: schema.GroupStyle},
				paddingField,
			),
			DefaultContent: map[string]any{"name": "Your Name", "tagline": "A one-line promise to your audience."},
		},
		inline: []string{"name", "title", "tagline", "ctaText"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			if img := str(c.Content, "imageUrl"); img != "" {
				h.image(img, str(c.Content, "name"), "class", "mk-hero-portrait")
			}
			h.field("h1", "name", str(c.Content, "name"))
			h.field("h2", "title", str(c.Content, "title"))
			if t := str(c.Content, "tagline"); t != "" {
				h.field("p", "tagline", t, "class", "mk-tagline")
			}
			if t := str(c.Content, "ctaText"); t != "" {
				h.link(str(c.Content, "ctaUrl"), t, "class", "mk-button", "data-field", "ctaText")
			}
		},
		validate: func(content map[string]any) []errors.Issue {
			if str(content, "ctaText") != "" && str(content, "ctaUrl") == "" {
				return []errors.Issue{{Path: "content.ctaUrl", Message: "is required when a button text is set"}}
			}
			return nil
		},
	}
}

func biography() *Class {
	return &Class{
		def: registry.Definition{
			Type:        "biography",
			Title:       "Biography",
			Description: "Long-form introduction with an optional photo.",
			Icon:        "user",
			Category:    "content",
			ContentSchema: schema.New(
				titleField("About Me"),
				schema.Field{Name: "text", Label: "Biography", Type: schema.TypeText, Required: true, MaxLength: 5000},
				schema.Field{Name: "imageUrl", Label: "Photo", Type: schema.TypeImage},
				schema.Field{Name: "imagePosition", Type: schema.TypeSelect, Default: "none",
					Options: options("none", "left", "right"), Group: schema.GroupStyle},
			),
			StyleSchema:    schema.New(backgroundField, textColorField, alignField, paddingField),
			DefaultContent: map[string]any{"text": "Share your story, your expertise and what audiences can expect from you."},
		},
		inline: []string{"title", "text"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			pos := str(c.Content, "imagePosition")
			if img := str(c.Content, "imageUrl"); img != "" && pos != "none" {
				h.image(img, str(c.Content, "title"), "class", "mk-bio-photo mk-"+pos)
			}
			for i, para := range strings.Split(str(c.Content, "text"), "\n\n") {
				if i == 0 {
					h.field("p", "text", para)
					continue
				}
				h.elem("p", para)
			}
		},
	}
}

func topics() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "topics",
			Title:         "Speaking Topics",
			Description:   "Numbered list of subjects you speak or write about.",
			Icon:          "list",
			Category:      "content",
			ContentSchema: schema.New(titleField("Speaking Topics")),
			StyleSchema: schema.New(backgroundField, textColorField,
				schema.Field{Name: "columns", Type: schema.TypeNumber, Default: 2.0, Min: num(1), Max: num(4), Group: schema.GroupStyle},
				schema.Field{Name: "accentColor", Label: "Accent", Type: schema.TypeColor, Default: "#2563eb", Group: schema.GroupStyle},
			),
			List: &schema.List{Prefix: "topic", Min: 1, Max: 10, Item: schema.Field{Type: schema.TypeString, MaxLength: 120}},
			DefaultContent: map[string]any{
				"topic_1": "Leadership",
				"topic_2": "Innovation",
				"topic_3": "Storytelling",
			},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "ul", "li")
		},
	}
}

func questions() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "questions",
			Title:         "Interview Questions",
			Description:   "Suggested questions for hosts and interviewers.",
			Icon:          "help-circle",
			Category:      "content",
			ContentSchema: schema.New(titleField("Suggested Interview Questions")),
			StyleSchema:   schema.New(backgroundField, textColorField),
			List: &schema.List{Prefix: "question", Min: 1, Max: 25,
				Item: schema.Field{Type: schema.TypeString, MaxLength: 300}},
			DefaultContent: map[string]any{
				"question_1": "How did you get started?",
				"question_2": "What is the biggest misconception about your field?",
			},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "ol", "li")
		},
		validate: func(content map[string]any) []errors.Issue {
			var issues []errors.Issue
			for i, q := range (&schema.List{Prefix: "question"}).Items(content) {
				if s, ok := q.(string); ok && s != "" && !strings.HasSuffix(strings.TrimSpace(s), "?") {
					issues = append(issues, errors.Issue{
						Path:    fmt.Sprintf("content.question_%d", i+1),
						Message: "should end with a question mark",
					})
				}
			}
			return issues
		},
	}
}

var socialNetworks = []string{"website", "twitter", "linkedin", "instagram", "youtube", "tiktok"}

func social() *Class {
	fields := []schema.Field{titleField("Follow Me")}
	for _, n := range socialNetworks {
		fields = append(fields, schema.Field{Name: n, Type: schema.TypeURL})
	}
	return &Class{
		def: registry.Definition{
			Type:          "social",
			Title:         "Social Links",
			Description:   "Links to your social profiles.",
			Icon:          "share",
			Category:      "contact",
			ContentSchema: schema.New(fields...),
			StyleSchema: schema.New(backgroundField,
				schema.Field{Name: "iconStyle", Type: schema.TypeSelect, Default: "round", Options: options("round", "square", "plain"), Group: schema.GroupStyle},
				schema.Field{Name: "iconColor", Type: schema.TypeColor, Default: "#111827", Group: schema.GroupStyle},
			),
			DefaultContent: map[string]any{"website": "https://example.com"},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			h.field("h3", "title", str(c.Content, "title"))
			h.open("ul", "class", "mk-social mk-"+str(c.Styles, "iconStyle"))
			for _, n := range socialNetworks {
				if link := str(c.Content, n); link != "" {
					h.open("li")
					h.link(link, networkLabel(n, link), "rel", "me noopener", "data-network", n)
					h.close("li")
				}
			}
			h.close("ul")
		},
		validate: func(content map[string]any) []errors.Issue {
			for _, n := range socialNetworks {
				if str(content, n) != "" {
					return nil
				}
			}
			return []errors.Issue{{Path: "content", Message: "add at least one social link"}}
		},
	}
}

func networkLabel(network, link string) string {
	if network != "website" {
		return strings.ToUpper(network[:1]) + network[1:]
	}
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return "Website"
}

func contact() *Class {
	return &Class{
		def: registry.Definition{
			Type:        "contact",
			Title:       "Contact",
			Description: "Booking and press contact details.",
			Icon:        "mail",
			Category:    "contact",
			ContentSchema: schema.New(
				titleField("Get in Touch"),
				schema.Field{Name: "email", Type: schema.TypeEmail, Required: true},
				schema.Field{Name: "phone", Type: schema.TypeString, Pattern: `^[0-9+()\-. ]*$`, MaxLength: 30},
				schema.Field{Name: "location", Type: schema.TypeString, MaxLength: 120},
				schema.Field{Name: "agentName", Label: "Agent / manager", Type: schema.TypeString, MaxLength: 80},
				schema.Field{Name: "showForm", Label: "Show contact form", Type: schema.TypeBoolean, Default: false, Group: schema.GroupAdvanced},
			),
			StyleSchema:    schema.New(backgroundField, textColorField, alignField),
			DefaultContent: map[string]any{"email": "booking@example.com"},
		},
		inline: []string{"title", "location", "agentName"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			h.open("dl", "class", "mk-contact")
			email := str(c.Content, "email")
			h.elem("dt", "Email")
			h.open("dd")
			h.link("mailto:"+email, email)
			h.close("dd")
			for _, k := range []string{"phone", "location", "agentName"} {
				if v := str(c.Content, k); v != "" {
					h.elem("dt", k)
					h.field("dd", k, v)
				}
			}
			h.close("dl")
			if b, _ := c.Content["showForm"].(bool); b {
				h.open("form", "class", "mk-contact-form", "method", "post", "action", "#")
				h.open("input", "type", "email", "name", "email", "placeholder", "Your email", "required", "")
				h.open("textarea", "name", "message", "placeholder", "Message")
				h.close("textarea")
				h.elem("button", "Send", "type", "submit")
				h.close("form")
			}
		},
	}
}

func stats() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "stats",
			Title:         "Audience Stats",
			Description:   "Headline numbers such as followers or downloads.",
			Icon:          "bar-chart",
			Category:      "social-proof",
			ContentSchema: schema.New(titleField("By the Numbers")),
			StyleSchema: schema.New(backgroundField, textColorField,
				schema.Field{Name: "accentColor", Label: "Number color", Type: schema.TypeColor, Default: "#2563eb", Group: schema.GroupStyle}),
			List: &schema.List{Prefix: "stat", Min: 1, Max: 6, Item: schema.Field{Type: schema.TypeString, MaxLength: 60}},
			DefaultContent: map[string]any{
				"stat_1": "50K+ podcast downloads",
				"stat_2": "120 keynotes delivered",
			},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "div", "p")
		},
	}
}

func callToAction() *Class {
	return &Class{
		def: registry.Definition{
			Type:        "call-to-action",
			Title:       "Call to Action",
			Description: "A headline with a single button.",
			Icon:        "mouse-pointer",
			Category:    "conversion",
			ContentSchema: schema.New(
				schema.Field{Name: "heading", Type: schema.TypeString, Required: true, MaxLength: 120},
				schema.Field{Name: "text", Type: schema.TypeText, MaxLength: 500},
				schema.Field{Name: "buttonText", Type: schema.TypeString, Required: true, MaxLength: 40},
				schema.Field{Name: "buttonUrl", Type: schema.TypeURL, Required: true},
			),
			StyleSchema: schema.New(backgroundField, textColorField, alignField,
				schema.Field{Name: "buttonColor", Type: schema.TypeColor, Default: "#dc2626", Group: schema.GroupStyle}),
			DefaultContent: map[string]any{
				"heading":    "Book me for your next event",
				"buttonText": "Get in touch",
				"buttonUrl":  "#contact",
			},
		},
		inline: []string{"heading", "text", "buttonText"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			h.field("h2", "heading", str(c.Content, "heading"))
			if t := str(c.Content, "text"); t != "" {
				h.field("p", "text", t)
			}
			h.link(str(c.Content, "buttonUrl"), str(c.Content, "buttonText"),
				"class", "mk-button", "style", styleAttr(c.Styles, map[string]string{"buttonColor": "background-color"}))
		},
	}
}

func testimonials() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "testimonials",
			Title:         "Testimonials",
			Description:   "Quotes from event organizers and hosts.",
			Icon:          "message-square",
			Category:      "social-proof",
			ContentSchema: schema.New(titleField("What People Say")),
			StyleSchema:   schema.New(backgroundField, textColorField, alignField),
			List: &schema.List{Prefix: "testimonial", Min: 1, Max: 10,
				Item: schema.Field{Type: schema.TypeText, MaxLength: 600}},
			DefaultContent: map[string]any{"testimonial_1": "An unforgettable keynote. Our attendees are still talking about it."},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "div", "blockquote")
		},
	}
}

func gallery() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "gallery",
			Title:         "Photo Gallery",
			Description:   "Grid of press and event photos.",
			Icon:          "image",
			Category:      "media",
			Premium:       true,
			ContentSchema: schema.New(titleField("Gallery")),
			StyleSchema: schema.New(backgroundField,
				schema.Field{Name: "columns", Type: schema.TypeNumber, Default: 3.0, Min: num(1), Max: num(6), Group: schema.GroupStyle}),
			List:           &schema.List{Prefix: "image", Min: 1, Max: 24, Item: schema.Field{Type: schema.TypeImage}},
			DefaultContent: map[string]any{"image_1": "https://placehold.co/600x400"},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "div", "figure")
		},
	}
}

func video() *Class {
	return &Class{
		def: registry.Definition{
			Type:        "video",
			Title:       "Video",
			Description: "Embedded talk or showreel.",
			Icon:        "video",
			Category:    "media",
			Premium:     true,
			ContentSchema: schema.New(
				titleField("Watch"),
				schema.Field{Name: "videoUrl", Label: "Video link", Type: schema.TypeURL, Required: true},
				schema.Field{Name: "caption", Type: schema.TypeText, MaxLength: 300},
				schema.Field{Name: "autoplay", Type: schema.TypeBoolean, Default: false, Group: schema.GroupAdvanced},
			),
			StyleSchema:    schema.New(backgroundField, alignField),
			DefaultContent: map[string]any{"videoUrl": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		},
		inline: []string{"title", "caption"},
		body: func(h *htmlWriter, c types.Component, _ registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			src := embedURL(str(c.Content, "videoUrl"))
			if b, _ := c.Content["autoplay"].(bool); b {
				src += "?autoplay=1"
			}
			h.open("iframe", "src", safeURL(src), "title", str(c.Content, "title"),
				"allow", "fullscreen; picture-in-picture", "loading", "lazy")
			h.close("iframe")
			if caption := str(c.Content, "caption"); caption != "" {
				h.field("p", "caption", caption, "class", "mk-caption")
			}
		},
		validate: func(content map[string]any) []errors.Issue {
			u, err := url.Parse(str(content, "videoUrl"))
			if err != nil || !strings.HasPrefix(u.Scheme, "http") {
				return []errors.Issue{{Path: "content.videoUrl", Message: "must be an http(s) link"}}
			}
			return nil
		},
	}
}

// embedURL turns a YouTube or Vimeo watch link into its embed form.
func embedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(u.Host, "www.")
	switch host {
	case "youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	case "youtu.be":
		return "https://www.youtube.com/embed" + u.Path
	case "vimeo.com":
		return "https://player.vimeo.com/video" + u.Path
	}
	return raw
}

func logoGrid() *Class {
	return &Class{
		def: registry.Definition{
			Type:          "logo-grid",
			Title:         "As Seen On",
			Description:   "Logos of outlets and clients.",
			Icon:          "grid",
			Category:      "social-proof",
			Premium:       true,
			ContentSchema: schema.New(titleField("As Seen On")),
			StyleSchema: schema.New(backgroundField,
				schema.Field{Name: "grayscale", Type: schema.TypeBoolean, Default: true, Group: schema.GroupStyle}),
			List:           &schema.List{Prefix: "logo", Min: 1, Max: 16, Item: schema.Field{Type: schema.TypeImage}},
			DefaultContent: map[string]any{"logo_1": "https://placehold.co/200x80"},
		},
		inline: []string{"title"},
		body: func(h *htmlWriter, c types.Component, def registry.Definition) {
			h.field("h2", "title", str(c.Content, "title"))
			listItems(h, c, def, "div", "span")
		},
	}
}
