package rule

import "strings"

// ResourceType is the kind of resource a request fetches.
type ResourceType uint16

const (
	ResourceOther ResourceType = 1 << iota
	ResourceDocument
	ResourceSubdocument
	ResourceScript
	ResourceImage
	ResourceStylesheet
	ResourceObject
	ResourceXMLHTTPRequest
	ResourceMedia
	ResourceFont
	ResourceWebSocket
	ResourcePing

	// ResourceAny matches every resource type.
	ResourceAny ResourceType = 1<<iota - 1
)

var (
	// resourceTypeNames maps filter option names, including aliases, to resource types.
	resourceTypeNames = map[string]ResourceType{
		"other":          ResourceOther,
		"document":       ResourceDocument,
		"doc":            ResourceDocument,
		"subdocument":    ResourceSubdocument,
		"frame":          ResourceSubdocument,
		"script":         ResourceScript,
		"image":          ResourceImage,
		"img":            ResourceImage,
		"stylesheet":     ResourceStylesheet,
		"css":            ResourceStylesheet,
		"object":         ResourceObject,
		"xmlhttprequest": ResourceXMLHTTPRequest,
		"xhr":            ResourceXMLHTTPRequest,
		"media":          ResourceMedia,
		"font":           ResourceFont,
		"websocket":      ResourceWebSocket,
		"ping":           ResourcePing,
		"beacon":         ResourcePing,
	}
	// requestTypeLabels maps the labels hosts pass with a request to resource types.
	// It accepts the filter option names as well as the labels used by the webRequest API.
	requestTypeLabels = map[string]ResourceType{
		"main_frame":  ResourceDocument,
		"sub_frame":   ResourceSubdocument,
		"iframe":      ResourceSubdocument,
		"style":       ResourceStylesheet,
		"fetch":       ResourceXMLHTTPRequest,
		"audio":       ResourceMedia,
		"video":       ResourceMedia,
		"track":       ResourceMedia,
		"csp_report":  ResourceOther,
		"imageset":    ResourceImage,
		"speculative": ResourceOther,
	}
)

// ParseResourceTypeOption returns the resource type named by a filter option, such as "script" or "xhr".
func ParseResourceTypeOption(name string) (ResourceType, bool) {
	t, ok := resourceTypeNames[name]
	return t, ok
}

// ParseRequestType returns the resource type for a host-supplied request type label.
// Unknown and empty labels map to ResourceOther.
func ParseRequestType(label string) ResourceType {
	label = strings.ToLower(strings.TrimSpace(label))
	if t, ok := resourceTypeNames[label]; ok {
		return t
	}
	if t, ok := requestTypeLabels[label]; ok {
		return t
	}
	return ResourceOther
}

// Has reports whether t includes all the bits of other.
func (t ResourceType) Has(other ResourceType) bool {
	return t&other == other
}

func (t ResourceType) String() string {
	if t == ResourceAny {
		return "any"
	}
	var names []string
	for _, n := range []struct {
		t    ResourceType
		name string
	}{
		{ResourceOther, "other"},
		{ResourceDocument, "document"},
		{ResourceSubdocument, "subdocument"},
		{ResourceScript, "script"},
		{ResourceImage, "image"},
		{ResourceStylesheet, "stylesheet"},
		{ResourceObject, "object"},
		{ResourceXMLHTTPRequest, "xmlhttprequest"},
		{ResourceMedia, "media"},
		{ResourceFont, "font"},
		{ResourceWebSocket, "websocket"},
		{ResourcePing, "ping"},
	} {
		if t&n.t != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
