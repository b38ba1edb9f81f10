package apk

import (
	"github.com/huanfeng/apkparse/pkg/pm"
)

// parseIntent reads an <intent-filter> or <preferred> element. Glob
// patterns are rejected when allowGlobs is false.
func (s *parseState) parseIntent(allowGlobs bool) (*pm.IntentInfo, error) {
	dec := s.dec
	info := &pm.IntentInfo{}
	info.Priority = dec.AttrInt("priority", 0)

	if v, ok := dec.Attr("label"); ok {
		if info.LabelRes = v.ResourceID(); info.LabelRes == 0 {
			info.NonLocalizedLabel = v.Raw
		}
	}
	info.Icon = dec.AttrResource("icon")
	info.Logo = dec.AttrResource("logo")

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch dec.Name() {
		case "action", "category":
			value := dec.AttrString("name")
			if value == "" {
				return nil, s.malformed("No value supplied for <android:name>")
			}
			if dec.Name() == "action" {
				info.AddAction(value)
			} else {
				info.AddCategory(value)
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case "data":
			if err := s.parseIntentData(info, allowGlobs); err != nil {
				return nil, err
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		default:
			if err := s.unknownElement("intent-filter"); err != nil {
				return nil, err
			}
		}
	}

	info.HasDefault = info.HasCategory(pm.CategoryDefault)
	return info, nil
}

func (s *parseState) parseIntentData(info *pm.IntentInfo, allowGlobs bool) error {
	if mime, ok := s.str("mimeType"); ok {
		if err := info.AddDataType(mime); err != nil {
			return s.malformed("%s", err)
		}
	}
	if scheme, ok := s.str("scheme"); ok {
		info.AddDataScheme(scheme)
	}

	if ssp, ok := s.str("ssp"); ok {
		info.AddDataSchemeSpecificPart(ssp, pm.PatternLiteral)
	}
	if ssp, ok := s.str("sspPrefix"); ok {
		info.AddDataSchemeSpecificPart(ssp, pm.PatternPrefix)
	}
	if ssp, ok := s.str("sspPattern"); ok {
		if !allowGlobs {
			return s.malformed("sspPattern not allowed here; ssp must be literal")
		}
		info.AddDataSchemeSpecificPart(ssp, pm.PatternSimpleGlob)
	}

	if host, ok := s.str("host"); ok {
		port, _ := s.str("port")
		info.AddDataAuthority(host, port)
	}

	if path, ok := s.str("path"); ok {
		info.AddDataPath(path, pm.PatternLiteral)
	}
	if path, ok := s.str("pathPrefix"); ok {
		info.AddDataPath(path, pm.PatternPrefix)
	}
	if path, ok := s.str("pathPattern"); ok {
		if !allowGlobs {
			return s.malformed("pathPattern not allowed here; path must be literal")
		}
		info.AddDataPath(path, pm.PatternSimpleGlob)
	}
	return nil
}
