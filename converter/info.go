package converter

import "pdfgears/converter/document"

// Info summarises a PDF without converting it.
type Info struct {
	Pages     int    `json:"pages"`
	Rotations []int  `json:"rotations,omitempty"`
	Encrypted bool   `json:"encrypted"`
	Size      int    `json:"size"`
	Class     string `json:"class,omitempty"`
}

// Info reports page count, page rotations and whether the file is
// encrypted. A password-protected file yields only the encrypted flag and
// size.
func (s *Service) Info(data []byte) (*Info, error) {
	info := &Info{Encrypted: document.IsEncrypted(data), Size: len(data)}
	doc, err := document.Open(data)
	if err != nil {
		if info.Encrypted && document.KindOf(err) == document.KindInvalidPassword {
			return info, nil
		}
		return nil, err
	}
	info.Pages = doc.PageCount()
	for _, p := range doc.Pages() {
		info.Rotations = append(info.Rotations, p.Rotation())
	}
	info.Class = s.sniffer.Sniff(doc).String()
	return info, nil
}

// Capabilities reports which optional collaborators are usable here.
type Capabilities struct {
	Rasterize bool `json:"rasterize"`
	OCR       bool `json:"ocr"`
	OfficePDF bool `json:"office_to_pdf"`
}

// Capabilities probes the rasterizer, the OCR strategy and the office
// printer.
func (s *Service) Capabilities() Capabilities {
	return Capabilities{
		Rasterize: s.Raster.Available(),
		OCR:       s.ocr.Available(),
		OfficePDF: s.Office.Available(),
	}
}
