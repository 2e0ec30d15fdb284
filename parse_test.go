package traject_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/traject"
)

func TestParseToolCall(t *testing.T) {
	t.Run("single call with one parameter", func(t *testing.T) {
		call := traject.ParseToolCall("<function=finish>\n<parameter=answer>42</parameter>\n</function>")
		gt.NotNil(t, call)
		gt.Equal(t, "finish", call.Name)
		gt.Equal(t, "42", call.Arguments["answer"])
	})

	t.Run("surrounding prose is ignored", func(t *testing.T) {
		text := "Let me compute that.\n" +
			"<function=python_eval>\n" +
			"<parameter=code>2 + 3</parameter>\n" +
			"</function>\n" +
			"That should do it."
		call := traject.ParseToolCall(text)
		gt.NotNil(t, call)
		gt.Equal(t, "python_eval", call.Name)
		gt.Equal(t, "2 + 3", call.Arguments["code"])
	})

	t.Run("multiple parameters", func(t *testing.T) {
		text := "<function=compare>\n" +
			"<parameter=left>1</parameter>\n" +
			"<parameter=right>2</parameter>\n" +
			"</function>"
		call := traject.ParseToolCall(text)
		gt.NotNil(t, call)
		gt.Equal(t, 2, len(call.Arguments))
		gt.Equal(t, "1", call.Arguments["left"])
		gt.Equal(t, "2", call.Arguments["right"])
	})

	t.Run("only the first call is honored", func(t *testing.T) {
		text := "<function=first>\n<parameter=a>1</parameter>\n</function>\n" +
			"<function=second>\n<parameter=b>2</parameter>\n</function>"
		call := traject.ParseToolCall(text)
		gt.NotNil(t, call)
		gt.Equal(t, "first", call.Name)
	})

	t.Run("multiline parameter value is preserved", func(t *testing.T) {
		text := "<function=python_eval>\n" +
			"<parameter=code>abs(-3) +\nmin(1, 2)</parameter>\n" +
			"</function>"
		call := traject.ParseToolCall(text)
		gt.NotNil(t, call)
		gt.Equal(t, "abs(-3) +\nmin(1, 2)", call.Arguments["code"])
	})

	t.Run("plain text has no call", func(t *testing.T) {
		gt.Nil(t, traject.ParseToolCall("the answer is 42"))
	})

	t.Run("unclosed markup has no call", func(t *testing.T) {
		gt.Nil(t, traject.ParseToolCall("<function=finish>\n<parameter=answer>42</parameter>"))
	})

	t.Run("call without parameters", func(t *testing.T) {
		call := traject.ParseToolCall("<function=finish>\n</function>")
		gt.NotNil(t, call)
		gt.Equal(t, "finish", call.Name)
		gt.Equal(t, 0, len(call.Arguments))
	})
}
