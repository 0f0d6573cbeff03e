//go:build windows || darwin

package process

import "github.com/pkg/browser"

// openWithDefaultHandler hands a URI or document to the desktop's default handler
var openWithDefaultHandler = browser.OpenURL
