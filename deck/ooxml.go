package deck

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// 16:9 slide canvas in EMU.
const (
	slideWidthEMU  = 12192000
	slideHeightEMU = 6858000
)

const (
	relTypeSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeHyperlink   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// relationship mirrors one entry of a .rels part.
type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

// presentationPart is the subset of ppt/presentation.xml needed to resolve
// slide order.
type presentationPart struct {
	XMLName  xml.Name `xml:"presentation"`
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

func renderRels(rels []relationship) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"`, r.ID, r.Type, escapeXML(r.Target))
		if r.TargetMode != "" {
			fmt.Fprintf(&b, ` TargetMode="%s"`, r.TargetMode)
		}
		b.WriteString("/>")
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func escapeXML(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// mediaContentTypes maps media extensions to their package content types.
var mediaContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"wmf":  "image/x-wmf",
	"emf":  "image/x-emf",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"wav":  "audio/wav",
}

// contentTypesXML builds [Content_Types].xml for slideCount slides plus any
// media extensions seen in spliced reference slides.
func contentTypesXML(slideCount int, extraExts map[string]bool) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)

	for ext := range extraExts {
		if ext == "png" || ext == "rels" || ext == "xml" {
			continue
		}
		if ct, ok := mediaContentTypes[ext]; ok {
			fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, ext, ct)
		}
	}

	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.Bytes()
}

func rootRelsXML() []byte {
	return renderRels([]relationship{
		{ID: "rId1", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument", Target: "ppt/presentation.xml"},
		{ID: "rId2", Type: "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", Target: "docProps/core.xml"},
		{ID: "rId3", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties", Target: "docProps/app.xml"},
	})
}

func presentationXML(slideCount int) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, 1+i)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, slideWidthEMU, slideHeightEMU)
	b.WriteString(`</p:presentation>`)
	return b.Bytes()
}

func presentationRelsXML(slideCount int) []byte {
	rels := []relationship{
		{ID: "rId1", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster", Target: "slideMasters/slideMaster1.xml"},
	}
	for i := 1; i <= slideCount; i++ {
		rels = append(rels, relationship{
			ID:     fmt.Sprintf("rId%d", 1+i),
			Type:   relTypeSlide,
			Target: fmt.Sprintf("slides/slide%d.xml", i),
		})
	}
	return renderRels(rels)
}

const emptySpTree = `<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
	`</p:spTree></p:cSld>`

func slideMasterXML() []byte {
	return []byte(xml.Header +
		`<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		emptySpTree +
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
		`</p:sldMaster>`)
}

func slideMasterRelsXML() []byte {
	return renderRels([]relationship{
		{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme", Target: "../theme/theme1.xml"},
	})
}

func slideLayoutXML() []byte {
	return []byte(xml.Header +
		`<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="blank">` +
		emptySpTree +
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
		`</p:sldLayout>`)
}

func slideLayoutRelsXML() []byte {
	return renderRels([]relationship{
		{ID: "rId1", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster", Target: "../slideMasters/slideMaster1.xml"},
	})
}

// themeXML is the minimal theme a slide master must reference.
func themeXML() []byte {
	clr := `<a:clrScheme name="deckgen">` +
		`<a:dk1><a:srgbClr val="1A2433"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
		`<a:dk2><a:srgbClr val="0B3C5D"/></a:dk2><a:lt2><a:srgbClr val="F4F8FB"/></a:lt2>` +
		`<a:accent1><a:srgbClr val="1D70B8"/></a:accent1><a:accent2><a:srgbClr val="328CC1"/></a:accent2>` +
		`<a:accent3><a:srgbClr val="6B5B95"/></a:accent3><a:accent4><a:srgbClr val="D9B310"/></a:accent4>` +
		`<a:accent5><a:srgbClr val="985E6D"/></a:accent5><a:accent6><a:srgbClr val="4B8E8D"/></a:accent6>` +
		`<a:hlink><a:srgbClr val="1D70B8"/></a:hlink><a:folHlink><a:srgbClr val="6B5B95"/></a:folHlink>` +
		`</a:clrScheme>`
	font := `<a:fontScheme name="deckgen">` +
		`<a:majorFont><a:latin typeface="Arial"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
		`<a:minorFont><a:latin typeface="Arial"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
		`</a:fontScheme>`
	fill := `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`
	ln := `<a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>`
	effect := `<a:effectStyle><a:effectLst/></a:effectStyle>`
	fmtScheme := `<a:fmtScheme name="deckgen">` +
		`<a:fillStyleLst>` + strings.Repeat(fill, 3) + `</a:fillStyleLst>` +
		`<a:lnStyleLst>` + strings.Repeat(ln, 3) + `</a:lnStyleLst>` +
		`<a:effectStyleLst>` + strings.Repeat(effect, 3) + `</a:effectStyleLst>` +
		`<a:bgFillStyleLst>` + strings.Repeat(fill, 3) + `</a:bgFillStyleLst>` +
		`</a:fmtScheme>`
	return []byte(xml.Header +
		`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="deckgen">` +
		`<a:themeElements>` + clr + font + fmtScheme + `</a:themeElements>` +
		`</a:theme>`)
}

func corePropsXML(title string) []byte {
	return []byte(xml.Header +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + escapeXML(title) + `</dc:title>` +
		`</cp:coreProperties>`)
}

func appPropsXML(slideCount int) []byte {
	return []byte(xml.Header +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>deckgen</Application>` +
		fmt.Sprintf(`<Slides>%d</Slides>`, slideCount) +
		`</Properties>`)
}
