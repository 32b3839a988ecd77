package onfido

// Interface abstracts the vendor API base URL so dev and simulation runs
// can point the client at a local stand-in.
type Interface interface {
	PublicEndpoint() string
}

type RealInterface struct{}

func (self *RealInterface) PublicEndpoint() string {
	return "https://api.onfido.com/v2"
}

func NewRealInterface() *RealInterface {
	return &RealInterface{}
}

type SimulatedInterface struct {
	BaseURL string
}

func (self *SimulatedInterface) PublicEndpoint() string {
	return self.BaseURL
}

func NewSimulatedInterface(baseURL string) *SimulatedInterface {
	return &SimulatedInterface{BaseURL: baseURL}
}
