package store

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/wonny/ship2profile/internal/table"
)

const parquetParallelism = 1

// schemaTag builds the parquet-go metadata for one optional column
func schemaTag(c table.Column) string {
	switch c.Kind {
	case table.KindFloat:
		return fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", c.Name)
	case table.KindInt:
		return fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", c.Name)
	default:
		return fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.Name)
	}
}

func writeParquet(path string, t *table.Table) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}

	md := make([]string, 0, t.Width())
	for _, c := range t.Columns() {
		md = append(md, schemaTag(c))
	}

	pw, err := writer.NewCSVWriter(md, fw, parquetParallelism)
	if err != nil {
		fw.Close()
		return fmt.Errorf("parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range t.Rows() {
		rec := make([]interface{}, len(row))
		copy(rec, row)
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("parquet write: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("parquet flush: %w", err)
	}
	return fw.Close()
}

func readParquet(path string) (*table.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("parquet footer: %w", err)
	}
	defer pr.ReadStop()

	// Schema[0] is the root element, leaves follow in column order.
	// SchemaElement names are parquet-go's capitalized in-names, ExName is the name we wrote.
	elems := pr.Footer.Schema[1:]
	cols := make([]table.Column, len(elems))
	for i, el := range elems {
		cols[i] = table.Column{Name: pr.SchemaHandler.Infos[i+1].ExName, Kind: kindOf(el)}
	}

	n := pr.GetNumRows()
	columns := make([][]interface{}, len(cols))
	for i := range cols {
		values, _, _, err := pr.ReadColumnByIndex(int64(i), n)
		if err != nil {
			return nil, fmt.Errorf("read column %s: %w", cols[i].Name, err)
		}
		if int64(len(values)) != n {
			return nil, fmt.Errorf("read column %s: got %d values for %d rows", cols[i].Name, len(values), n)
		}
		columns[i] = values
	}

	t := table.New(cols...)
	for r := int64(0); r < n; r++ {
		row := make([]any, len(cols))
		for c := range cols {
			row[c] = fromParquet(columns[c][r])
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func kindOf(el *parquet.SchemaElement) table.Kind {
	if el.Type == nil {
		return table.KindString
	}
	switch *el.Type {
	case parquet.Type_DOUBLE, parquet.Type_FLOAT:
		return table.KindFloat
	case parquet.Type_INT64, parquet.Type_INT32:
		return table.KindInt
	default:
		return table.KindString
	}
}

func fromParquet(v interface{}) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return x
	}
}
