package twilio

import (
	"encoding/xml"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
	Pause   twimlPause   `xml:"Pause"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type twimlPause struct {
	Length int `xml:"length,attr"`
}

// Param is a custom parameter Twilio echoes back in the stream start message.
type Param struct {
	Name  string
	Value string
}

// StreamTwiML renders a document that bridges the call audio to streamURL.
func StreamTwiML(streamURL string, params ...Param) ([]byte, error) {
	doc := twimlResponse{
		Connect: twimlConnect{Stream: twimlStream{URL: streamURL}},
		Pause:   twimlPause{Length: 20},
	}
	for _, p := range params {
		doc.Connect.Stream.Parameters = append(doc.Connect.Stream.Parameters, twimlParameter{Name: p.Name, Value: p.Value})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
