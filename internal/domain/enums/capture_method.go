package enums

type CaptureMethod string

const (
	CaptureMethodLive   CaptureMethod = "live"
	CaptureMethodUpload CaptureMethod = "upload"
)

func ParseCaptureMethod(value string) (CaptureMethod, bool) {
	method := CaptureMethod(value)
	switch method {
	case CaptureMethodLive, CaptureMethodUpload:
		return method, true
	}
	return "", false
}
