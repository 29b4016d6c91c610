package labels

import (
	"os"
	"runtime"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// EnvLabelPrefix marks environment variables that become labels.
const EnvLabelPrefix = "ALLURE_LABEL_"

// EnvironmentLabels turns every ALLURE_LABEL_<NAME>=value entry of environ
// (os.Environ format) into a label named <name> in lower case. Results are
// ordered as in environ.
func EnvironmentLabels(environ []string) []model.Label {
	var result []model.Label
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvLabelPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, EnvLabelPrefix)
		if name == "" {
			continue
		}
		if !strings.EqualFold(name, model.LabelAllureID) {
			name = strings.ToLower(name)
		}
		result = append(result, model.Label{Name: name, Value: value})
	}
	return FilterBlank(result)
}

// HostLabel returns the host label for this machine. ALLURE_HOST_NAME
// overrides the operating system host name.
func HostLabel() model.Label {
	host := os.Getenv("ALLURE_HOST_NAME")
	if host == "" {
		host, _ = os.Hostname()
	}
	return model.Label{Name: model.LabelHost, Value: host}
}

// ThreadLabel returns a thread label for a worker. ALLURE_THREAD_NAME
// overrides the supplied worker name.
func ThreadLabel(worker string) model.Label {
	if name := os.Getenv("ALLURE_THREAD_NAME"); name != "" {
		worker = name
	}
	return model.Label{Name: model.LabelThread, Value: worker}
}

// LanguageLabel identifies the runtime producing the results.
func LanguageLabel() model.Label {
	return model.Label{Name: model.LabelLanguage, Value: "go/" + runtime.Version()}
}
